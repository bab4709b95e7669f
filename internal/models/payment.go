package models

// CheckoutSession is what the payment gateway returns when a hosted checkout
// flow is created for an order.
type CheckoutSession struct {
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	CheckoutURL     string `json:"checkout_url"`
}

// PaymentIntentInfo is the status of a payment intent as reported by the provider.
type PaymentIntentInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CheckoutSessionInfo is the status of a checkout session as reported by the provider.
type CheckoutSessionInfo struct {
	ID              string `json:"id"`
	PaymentStatus   string `json:"payment_status"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// Provider-reported statuses that mean "the money is there".
const (
	IntentStatusSucceeded = "succeeded"
	SessionPaymentPaid    = "paid"
)

// ProviderEvent is a signature-verified webhook event, reduced to the fields
// the order core needs. The gateway adapter owns the provider-specific decode.
type ProviderEvent struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	PaymentStatus   string `json:"payment_status,omitempty"`
}
