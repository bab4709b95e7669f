package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkout/internal/models"
	"ms-checkout/internal/order"
)

func TestSyncConfirmsWhenIntentSucceeded(t *testing.T) {
	svc, store, _, gateway, publisher, _ := setupService()
	seedPendingOrder(store)
	gateway.intent = &models.PaymentIntentInfo{ID: "pi_test_1", Status: models.IntentStatusSucceeded}

	resp, err := svc.SyncOrder(context.Background(), "order-1", "user-1")
	require.NoError(t, err)
	assert.True(t, resp.Confirmed)
	assert.Equal(t, models.OrderStatusConfirmed, resp.Status)

	assert.Equal(t, models.OrderStatusConfirmed, store.orders["order-1"].Status)
	assert.Len(t, publisher.confirmed, 1)
}

func TestSyncLeavesPendingWhenIntentNotSucceeded(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.intent = &models.PaymentIntentInfo{ID: "pi_test_1", Status: "requires_payment_method"}

	resp, err := svc.SyncOrder(context.Background(), "order-1", "user-1")
	require.NoError(t, err)
	assert.False(t, resp.Confirmed)
	assert.Equal(t, models.OrderStatusPending, resp.Status)
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestSyncProviderFailureReportsPending(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.intentErr = errors.New("stripe unavailable")

	// A provider outage is not an error surface: the caller gets the last
	// known state and can retry.
	resp, err := svc.SyncOrder(context.Background(), "order-1", "user-1")
	require.NoError(t, err)
	assert.False(t, resp.Confirmed)
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestSyncAlreadyConfirmedSkipsProvider(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	ord := seedPendingOrder(store)
	ord.Status = models.OrderStatusConfirmed

	resp, err := svc.SyncOrder(context.Background(), "order-1", "user-1")
	require.NoError(t, err)
	assert.True(t, resp.Confirmed)
	assert.Zero(t, gateway.intentCalls)
}

func TestSyncFallsBackToSessionAndBackfillsReference(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	ord := seedPendingOrder(store)
	ord.PaymentReference = ""
	gateway.sessionInfo = &models.CheckoutSessionInfo{
		ID:              "cs_test_1",
		PaymentStatus:   models.SessionPaymentPaid,
		PaymentIntentID: "pi_late_1",
	}

	resp, err := svc.SyncOrder(context.Background(), "order-1", "user-1")
	require.NoError(t, err)
	assert.True(t, resp.Confirmed)
	assert.Equal(t, models.OrderStatusConfirmed, ord.Status)
	assert.Equal(t, "pi_late_1", ord.PaymentReference)
	assert.Zero(t, gateway.intentCalls)
}

func TestSyncWithoutSessionStaysPending(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	ord := seedPendingOrder(store)
	ord.PaymentReference = ""
	ord.StripeSessionID = ""

	resp, err := svc.SyncOrder(context.Background(), "order-1", "user-1")
	require.NoError(t, err)
	assert.False(t, resp.Confirmed)
	assert.Zero(t, gateway.intentCalls)
}

func TestSyncOwnershipAndNotFound(t *testing.T) {
	svc, store, _, _, _, _ := setupService()
	seedPendingOrder(store)

	_, err := svc.SyncOrder(context.Background(), "order-1", "user-2")
	assert.ErrorIs(t, err, order.ErrAccessDenied)

	_, err = svc.SyncOrder(context.Background(), "no-such-order", "user-1")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
