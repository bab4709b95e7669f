package order

import "errors"

// Checkout error taxonomy. Handlers map these onto HTTP statuses; anything
// else surfaces as an internal error.
var (
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrAccessDenied          = errors.New("access denied")
	ErrSoldOut               = errors.New("ticket is no longer available")
	ErrPerOrderLimitExceeded = errors.New("quantity exceeds the per-order limit")
	ErrSaleNotActive         = errors.New("ticket sales are not active")
	ErrPaymentInit           = errors.New("could not start payment")
)

// WebhookError carries the HTTP status and the client-safe message for a
// failed webhook delivery, keeping the detailed cause in the logs only.
type WebhookError struct {
	Category      string // "validation" or "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

func (e *WebhookError) Unwrap() error {
	return e.OriginalErr
}
