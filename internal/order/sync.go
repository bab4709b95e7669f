package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ms-checkout/internal/models"
	"ms-checkout/internal/monitoring"
)

// SyncOrder is the pull-side fallback to webhooks: the owner asks "is this
// paid yet" and we check the provider directly. The database stays the source
// of truth: a provider outage is logged and the caller gets the last known
// state, never an error, so a flaky provider can neither regress a confirmed
// order nor break the order-success page.
func (s *CheckoutService) SyncOrder(ctx context.Context, orderID, userID string) (*models.SyncResponse, error) {
	ord, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if ord.UserID != userID {
		return nil, ErrAccessDenied
	}

	if ord.Status == models.OrderStatusConfirmed {
		monitoring.RecordSync("already_confirmed")
		return syncResponse(ord.OrderID, models.OrderStatusConfirmed), nil
	}

	paid := s.providerReportsPaid(ctx, ord)
	if !paid {
		monitoring.RecordSync("still_pending")
		return syncResponse(ord.OrderID, ord.Status), nil
	}

	syntheticEventID := "sync-" + uuid.NewString()
	if err := s.confirm(ctx, ord, syntheticEventID, "sync"); err != nil {
		return nil, err
	}
	monitoring.RecordSync("confirmed")
	return syncResponse(ord.OrderID, models.OrderStatusConfirmed), nil
}

// providerReportsPaid asks the gateway about the order's payment. Any
// provider failure is swallowed: sync reports "still pending" until the next
// webhook or sync attempt succeeds.
func (s *CheckoutService) providerReportsPaid(ctx context.Context, ord *models.Order) bool {
	if ord.PaymentReference != "" {
		intent, err := s.Gateway.GetPaymentIntent(ctx, ord.PaymentReference)
		if err != nil {
			s.logger.Warn("SYNC", fmt.Sprintf("Provider lookup failed for order %s (intent %s): %v", ord.OrderID, ord.PaymentReference, err))
			return false
		}
		return intent.Status == models.IntentStatusSucceeded
	}

	if ord.StripeSessionID != "" {
		sess, err := s.Gateway.GetCheckoutSession(ctx, ord.StripeSessionID)
		if err != nil {
			s.logger.Warn("SYNC", fmt.Sprintf("Provider lookup failed for order %s (session %s): %v", ord.OrderID, ord.StripeSessionID, err))
			return false
		}
		if sess.PaymentIntentID != "" && ord.PaymentReference == "" {
			// Backfill the intent id so future webhooks and syncs can
			// match on it directly.
			if err := s.DB.AttachPaymentSession(ctx, ord.OrderID, ord.StripeSessionID, sess.PaymentIntentID); err != nil {
				s.logger.Warn("SYNC", fmt.Sprintf("Failed to backfill payment reference for order %s: %v", ord.OrderID, err))
			}
		}
		return sess.PaymentStatus == models.SessionPaymentPaid
	}

	// Checkout failed before a session was created; nothing to ask the
	// provider about.
	return false
}

func syncResponse(orderID, status string) *models.SyncResponse {
	return &models.SyncResponse{
		OrderID:   orderID,
		Status:    status,
		Confirmed: status == models.OrderStatusConfirmed,
	}
}
