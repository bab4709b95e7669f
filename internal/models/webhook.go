package models

// WebhookEventKind is the closed set of provider event types the order core
// dispatches on. Unknown types map to WebhookUnhandled and are acknowledged
// without action so new provider events never break delivery.
type WebhookEventKind int

const (
	WebhookUnhandled WebhookEventKind = iota
	WebhookPaymentSucceeded
	WebhookPaymentFailed
	WebhookSessionCompleted
	WebhookSessionExpired
)

// Provider event type strings (Stripe wire format).
const (
	EventTypePaymentSucceeded = "payment_intent.succeeded"
	EventTypePaymentFailed    = "payment_intent.payment_failed"
	EventTypeSessionCompleted = "checkout.session.completed"
	EventTypeSessionExpired   = "checkout.session.expired"
)

// WebhookEvent is the parsed form of a verified provider event.
type WebhookEvent struct {
	Kind            WebhookEventKind
	EventID         string
	RawType         string
	PaymentIntentID string
	SessionID       string
	PaymentStatus   string
}

// ParseWebhookEvent classifies a verified provider event into the closed
// variant the dispatcher matches on.
func ParseWebhookEvent(e ProviderEvent) WebhookEvent {
	parsed := WebhookEvent{
		EventID:         e.ID,
		RawType:         e.Type,
		PaymentIntentID: e.PaymentIntentID,
		SessionID:       e.SessionID,
		PaymentStatus:   e.PaymentStatus,
	}
	switch e.Type {
	case EventTypePaymentSucceeded:
		parsed.Kind = WebhookPaymentSucceeded
	case EventTypePaymentFailed:
		parsed.Kind = WebhookPaymentFailed
	case EventTypeSessionCompleted:
		parsed.Kind = WebhookSessionCompleted
	case EventTypeSessionExpired:
		parsed.Kind = WebhookSessionExpired
	default:
		parsed.Kind = WebhookUnhandled
	}
	return parsed
}
