package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"ms-checkout/internal/models"
	"ms-checkout/internal/monitoring"
	"ms-checkout/internal/payment"
)

// HandleProviderWebhook verifies and dispatches one provider event. Delivery
// is at-least-once and unordered, so every path here must be safe to repeat:
// the only state change is the idempotent confirm, and every recognized
// outcome (including "order not found" and unhandled types) acks with nil so
// the provider does not retry forever.
func (s *CheckoutService) HandleProviderWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	providerEvent, err := s.Gateway.VerifyWebhookSignature(payload, sigHeader)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			monitoring.RecordWebhook("invalid_signature")
			return &WebhookError{
				Category:      "validation",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid signature format",
				InternalError: fmt.Sprintf("webhook signature verification failed: %v", err),
				OriginalErr:   err,
			}
		}
		// The signature checked out but the payload would not decode.
		// A 500 keeps the provider retrying instead of blaming the caller.
		monitoring.RecordWebhook("decode_failed")
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment event",
			InternalError: fmt.Sprintf("webhook event decode failed: %v", err),
			OriginalErr:   err,
		}
	}

	event := models.ParseWebhookEvent(providerEvent)
	s.logger.LogWebhook(event.EventID, fmt.Sprintf("processing event type %s", event.RawType))

	marked := false
	if s.Replay != nil {
		first, err := s.Replay.MarkEventProcessed(ctx, event.EventID)
		if err != nil {
			// Redis down is not a reason to drop a delivery; the
			// conditional update still guarantees idempotency.
			s.logger.Warn("WEBHOOK", fmt.Sprintf("Replay guard unavailable for event %s: %v", event.EventID, err))
		} else if !first {
			s.logger.LogWebhook(event.EventID, "duplicate delivery, skipping")
			monitoring.RecordWebhook("duplicate")
			return nil
		} else {
			marked = true
		}
	}

	var dispatchErr error
	switch event.Kind {
	case models.WebhookPaymentSucceeded:
		dispatchErr = s.confirmFromWebhook(ctx, event)

	case models.WebhookSessionCompleted:
		if event.PaymentStatus != models.SessionPaymentPaid {
			// Async payment methods complete the session before the
			// money clears; the payment_intent.succeeded event will
			// confirm later.
			s.logger.LogWebhook(event.EventID, fmt.Sprintf("session %s completed but payment status is %q, leaving order pending", event.SessionID, event.PaymentStatus))
			monitoring.RecordWebhook("session_unpaid")
			return nil
		}
		dispatchErr = s.confirmFromWebhook(ctx, event)

	case models.WebhookPaymentFailed, models.WebhookSessionExpired:
		// No persisted failed state: the order stays pending so the same
		// buyer can retry payment.
		s.logger.LogWebhook(event.EventID, fmt.Sprintf("payment failed or session expired (%s), order left pending", event.RawType))
		monitoring.RecordWebhook("failure_ack")
		return nil

	default:
		s.logger.LogWebhook(event.EventID, fmt.Sprintf("unhandled event type %s", event.RawType))
		monitoring.RecordWebhook("unhandled")
		return nil
	}

	if dispatchErr != nil && marked {
		// The provider retries failed deliveries; a marked id would make
		// the retry look like a replay and get skipped, losing the event.
		if err := s.Replay.UnmarkEvent(ctx, event.EventID); err != nil {
			s.logger.Warn("WEBHOOK", fmt.Sprintf("Failed to unmark event %s for retry: %v", event.EventID, err))
		}
	}
	return dispatchErr
}

func (s *CheckoutService) confirmFromWebhook(ctx context.Context, event models.WebhookEvent) error {
	ord, err := s.findOrderForEvent(ctx, event)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Orders from other services share this Stripe account;
			// acking avoids a provider retry storm over rows that
			// will never exist here.
			s.logger.LogWebhook(event.EventID, "no matching order, acknowledging")
			monitoring.RecordWebhook("order_not_found")
			return nil
		}
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment event",
			InternalError: fmt.Sprintf("failed to locate order for event %s: %v", event.EventID, err),
			OriginalErr:   err,
		}
	}

	if err := s.confirm(ctx, ord, event.EventID, "webhook"); err != nil {
		return &WebhookError{
			Category:      "processing",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Failed to process payment event",
			InternalError: err.Error(),
			OriginalErr:   err,
		}
	}
	monitoring.RecordWebhook("confirmed")
	return nil
}

// findOrderForEvent locates the order a provider event refers to, preferring
// the payment intent id and falling back to the checkout session id.
func (s *CheckoutService) findOrderForEvent(ctx context.Context, event models.WebhookEvent) (*models.Order, error) {
	if event.PaymentIntentID != "" {
		ord, err := s.DB.GetOrderByPaymentReference(ctx, event.PaymentIntentID)
		if err == nil {
			return ord, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// Fall through: the intent id may not be attached yet if the
		// session was created before Stripe materialized the intent.
	}
	if event.SessionID != "" {
		return s.DB.GetOrderBySessionID(ctx, event.SessionID)
	}
	return nil, sql.ErrNoRows
}
