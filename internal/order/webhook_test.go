package order_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkout/internal/models"
	"ms-checkout/internal/order"
	"ms-checkout/internal/payment"
)

func seedPendingOrder(store *MockStore) *models.Order {
	ord := &models.Order{
		OrderID:          "order-1",
		UserID:           "user-1",
		TicketID:         "ticket-1",
		Quantity:         1,
		Status:           models.OrderStatusPending,
		PaymentReference: "pi_test_1",
		StripeSessionID:  "cs_test_1",
	}
	store.orders[ord.OrderID] = ord
	return ord
}

func TestWebhookPaymentSucceededConfirms(t *testing.T) {
	svc, store, _, gateway, publisher, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyEvent = models.ProviderEvent{
		ID:              "evt_1",
		Type:            models.EventTypePaymentSucceeded,
		PaymentIntentID: "pi_test_1",
	}

	err := svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig")
	require.NoError(t, err)

	ord := store.orders["order-1"]
	assert.Equal(t, models.OrderStatusConfirmed, ord.Status)
	require.NotNil(t, ord.ConfirmedAt)
	require.Len(t, publisher.confirmed, 1)
	assert.Equal(t, "order-1", publisher.confirmed[0].OrderID)
	assert.Equal(t, models.OrderStatusConfirmed, publisher.confirmed[0].Status)
}

func TestWebhookDuplicateDeliveryIsNoOp(t *testing.T) {
	svc, store, _, gateway, publisher, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyEvent = models.ProviderEvent{
		ID:              "evt_1",
		Type:            models.EventTypePaymentSucceeded,
		PaymentIntentID: "pi_test_1",
	}

	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))

	assert.Equal(t, 1, store.confirms)
	assert.Len(t, publisher.confirmed, 1)
}

func TestWebhookReplayGuardDownStillIdempotent(t *testing.T) {
	svc, store, _, gateway, publisher, replay := setupService()
	seedPendingOrder(store)
	replay.failErr = errors.New("redis unavailable")
	gateway.verifyEvent = models.ProviderEvent{
		ID:              "evt_1",
		Type:            models.EventTypePaymentSucceeded,
		PaymentIntentID: "pi_test_1",
	}

	// With the replay guard down both deliveries reach the store; the
	// conditional update still lets only the first one through.
	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))

	assert.Equal(t, 1, store.confirms)
	assert.Len(t, publisher.confirmed, 1)
}

func TestWebhookInvalidSignature(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyErr = fmt.Errorf("%w: signature mismatch", payment.ErrInvalidSignature)

	err := svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "bad-sig")
	require.Error(t, err)

	var webhookErr *order.WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, http.StatusBadRequest, webhookErr.StatusCode)
	assert.Equal(t, "Invalid signature format", webhookErr.PublicError)

	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestWebhookDecodeFailureIsNotSignatureError(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyErr = fmt.Errorf("%w: unexpected payload shape", payment.ErrStripeAPIError)

	// A verified event that fails to decode is a server-side problem, not
	// a bad signature; a 500 keeps the provider retrying.
	err := svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig")
	require.Error(t, err)

	var webhookErr *order.WebhookError
	require.ErrorAs(t, err, &webhookErr)
	assert.Equal(t, http.StatusInternalServerError, webhookErr.StatusCode)
	assert.Equal(t, "Failed to process payment event", webhookErr.PublicError)
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestWebhookRetryAfterFailureConfirms(t *testing.T) {
	svc, store, _, gateway, publisher, replay := setupService()
	seedPendingOrder(store)
	gateway.verifyEvent = models.ProviderEvent{
		ID:              "evt_1",
		Type:            models.EventTypePaymentSucceeded,
		PaymentIntentID: "pi_test_1",
	}

	// First delivery fails mid-processing; the event id must not stay
	// marked, or the provider's retry would be skipped as a replay.
	store.shouldFailOn = "ConfirmOrder"
	err := svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig")
	require.Error(t, err)
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
	assert.False(t, replay.seen["evt_1"])

	store.shouldFailOn = ""
	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, models.OrderStatusConfirmed, store.orders["order-1"].Status)
	assert.Len(t, publisher.confirmed, 1)
	assert.True(t, replay.seen["evt_1"])
}

func TestWebhookOrderNotFoundAcks(t *testing.T) {
	svc, _, _, gateway, _, _ := setupService()
	gateway.verifyEvent = models.ProviderEvent{
		ID:              "evt_1",
		Type:            models.EventTypePaymentSucceeded,
		PaymentIntentID: "pi_unknown",
	}

	// Events for orders owned by other services ack cleanly.
	err := svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig")
	assert.NoError(t, err)
}

func TestWebhookPaymentFailedLeavesPending(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyEvent = models.ProviderEvent{
		ID:              "evt_1",
		Type:            models.EventTypePaymentFailed,
		PaymentIntentID: "pi_test_1",
	}

	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)

	gateway.verifyEvent = models.ProviderEvent{
		ID:        "evt_2",
		Type:      models.EventTypeSessionExpired,
		SessionID: "cs_test_1",
	}
	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestWebhookSessionCompletedUnpaidLeavesPending(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyEvent = models.ProviderEvent{
		ID:            "evt_1",
		Type:          models.EventTypeSessionCompleted,
		SessionID:     "cs_test_1",
		PaymentStatus: "unpaid",
	}

	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestWebhookSessionCompletedPaidConfirmsViaSessionID(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	ord := seedPendingOrder(store)
	ord.PaymentReference = ""
	gateway.verifyEvent = models.ProviderEvent{
		ID:            "evt_1",
		Type:          models.EventTypeSessionCompleted,
		SessionID:     "cs_test_1",
		PaymentStatus: models.SessionPaymentPaid,
	}

	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, models.OrderStatusConfirmed, ord.Status)
}

func TestWebhookUnhandledTypeAcks(t *testing.T) {
	svc, store, _, gateway, _, _ := setupService()
	seedPendingOrder(store)
	gateway.verifyEvent = models.ProviderEvent{
		ID:   "evt_1",
		Type: "charge.refunded",
	}

	require.NoError(t, svc.HandleProviderWebhook(context.Background(), []byte(`{}`), "sig"))
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
	assert.Zero(t, store.confirms)
}
