package models

// CheckoutRequest is the body of POST /checkout/sessions.
type CheckoutRequest struct {
	TicketID         string `json:"ticket_id"`
	Quantity         int64  `json:"quantity"`
	CustomPriceCents *int64 `json:"custom_price_cents,omitempty"`
	TipCents         int64  `json:"tip_cents,omitempty"`
}

type CheckoutResponse struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	OrderID     string `json:"order_id"`
}

// SyncResponse is the body of POST /checkout/sync/{orderId}.
type SyncResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Confirmed bool   `json:"confirmed"`
}
