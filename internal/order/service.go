package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
	"ms-checkout/internal/monitoring"
	"ms-checkout/internal/order/db"
	"ms-checkout/internal/pricing"
)

type DBLayer interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPaymentReference(ctx context.Context, ref string) (*models.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	CreateOrderReserving(ctx context.Context, order *models.Order) error
	AttachPaymentSession(ctx context.Context, orderID, sessionID, paymentRef string) error
	ConfirmOrder(ctx context.Context, orderID string, at time.Time) (bool, error)
}

type TicketCatalog interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order, ticket *models.Ticket, event *models.Event) (*models.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, ref string) (*models.PaymentIntentInfo, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSessionInfo, error)
	VerifyWebhookSignature(payload []byte, sigHeader string) (models.ProviderEvent, error)
}

type EventPublisher interface {
	PublishOrderCreated(order models.Order) error
	PublishOrderConfirmed(order models.Order) error
}

// ReplayGuard remembers provider event ids to short-circuit duplicate
// webhook deliveries. Optional; confirmation is idempotent without it.
// A delivery that fails after marking must be unmarked so the provider's
// retry is processed instead of skipped.
type ReplayGuard interface {
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	UnmarkEvent(ctx context.Context, eventID string) error
}

// CheckoutService owns order creation and the single pending-to-confirmed
// transition. Webhooks and sync both route through ConfirmOrder in the DB
// layer, so concurrent signals for one order collapse into exactly one
// observable transition.
type CheckoutService struct {
	DB          DBLayer
	Tickets     TicketCatalog
	Gateway     PaymentGateway
	Events      EventPublisher
	Replay      ReplayGuard
	PerOrderCap int64

	logger *logger.Logger
	now    func() time.Time
}

func NewCheckoutService(dbLayer DBLayer, tickets TicketCatalog, gateway PaymentGateway, events EventPublisher, replay ReplayGuard, perOrderCap int64, log *logger.Logger) *CheckoutService {
	return &CheckoutService{
		DB:          dbLayer,
		Tickets:     tickets,
		Gateway:     gateway,
		Events:      events,
		Replay:      replay,
		PerOrderCap: perOrderCap,
		logger:      log,
		now:         time.Now,
	}
}

// Checkout turns a purchase request into a pending order with a hosted
// payment session: price snapshot, inventory reservation, order insert,
// provider session, in that order. The inventory check and the insert run in
// one transaction in the DB layer.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	ticket, err := s.Tickets.GetTicketByID(ctx, req.TicketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to load ticket %s: %w", req.TicketID, err)
	}

	if req.Quantity > s.PerOrderCap {
		return nil, ErrPerOrderLimitExceeded
	}
	if !ticket.SaleActiveAt(s.now()) {
		return nil, ErrSaleNotActive
	}

	snapshot, err := pricing.Calculate(ticket, req.Quantity, req.CustomPriceCents, req.TipCents)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newOrder := &models.Order{
		OrderID:   uuid.NewString(),
		UserID:    userID,
		TicketID:  ticket.TicketID,
		EventID:   ticket.EventID,
		Status:    models.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newOrder.ApplySnapshot(snapshot)

	if err := s.DB.CreateOrderReserving(ctx, newOrder); err != nil {
		if errors.Is(err, db.ErrInsufficientInventory) {
			return nil, ErrSoldOut
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.logger.LogOrder("CREATE", newOrder.OrderID, fmt.Sprintf("pending order for ticket %s, qty %d, total %d cents", ticket.TicketID, newOrder.Quantity, newOrder.TotalCents))
	monitoring.RecordOrderCreated()

	// The event name is decoration on the hosted payment page; a catalog gap
	// must not block checkout.
	event, err := s.Tickets.GetEventByID(ctx, ticket.EventID)
	if err != nil {
		s.logger.Warn("CHECKOUT", fmt.Sprintf("Event %s not found for ticket %s: %v", ticket.EventID, ticket.TicketID, err))
		event = nil
	}

	session, err := s.Gateway.CreateCheckoutSession(ctx, newOrder, ticket, event)
	if err != nil {
		// The order row stays pending with no session attached; the
		// caller sees a generic failure and can retry checkout.
		s.logger.Error("PAYMENT", fmt.Sprintf("Failed to start payment for order %s: %v", newOrder.OrderID, err))
		return nil, ErrPaymentInit
	}

	if err := s.DB.AttachPaymentSession(ctx, newOrder.OrderID, session.SessionID, session.PaymentIntentID); err != nil {
		return nil, fmt.Errorf("failed to attach payment session to order %s: %w", newOrder.OrderID, err)
	}
	newOrder.StripeSessionID = session.SessionID
	newOrder.PaymentReference = session.PaymentIntentID

	if s.Events != nil {
		if err := s.Events.PublishOrderCreated(*newOrder); err != nil {
			s.logger.Warn("KAFKA", fmt.Sprintf("Failed to publish order created event for %s: %v", newOrder.OrderID, err))
		}
	}

	return &models.CheckoutResponse{
		Success:     true,
		CheckoutURL: session.CheckoutURL,
		SessionID:   session.SessionID,
		OrderID:     newOrder.OrderID,
	}, nil
}

// GetOrder returns an order to its owner. Read-only surface consumed by the
// receipt and order-success subsystems.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID, userID string) (*models.Order, error) {
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
	return ord, nil
}

// confirm performs the idempotent transition and the side effects that only
// the winning caller should run. source is "webhook" or "sync"; eventID is
// the provider event id or a synthetic sync id, logged for traceability.
func (s *CheckoutService) confirm(ctx context.Context, ord *models.Order, eventID, source string) error {
	performed, err := s.DB.ConfirmOrder(ctx, ord.OrderID, s.now())
	if err != nil {
		return fmt.Errorf("failed to confirm order %s: %w", ord.OrderID, err)
	}

	if !performed {
		s.logger.LogOrder("CONFIRM", ord.OrderID, fmt.Sprintf("already confirmed, %s event %s is a no-op", source, eventID))
		return nil
	}

	s.logger.LogOrder("CONFIRM", ord.OrderID, fmt.Sprintf("confirmed via %s event %s", source, eventID))
	monitoring.RecordOrderConfirmed(source)

	if s.Events != nil {
		confirmed := *ord
		confirmed.Status = models.OrderStatusConfirmed
		if err := s.Events.PublishOrderConfirmed(confirmed); err != nil {
			s.logger.Warn("KAFKA", fmt.Sprintf("Failed to publish order confirmed event for %s: %v", ord.OrderID, err))
		}
	}
	return nil
}
