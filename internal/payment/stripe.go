package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"ms-checkout/internal/config"
	"ms-checkout/internal/logger"
	"ms-checkout/internal/models"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
)

// StripeGateway is the Stripe implementation of the payment gateway the order
// core depends on. The core only ever sees the interface, so tests inject a
// mock and no global Stripe state is touched.
type StripeGateway struct {
	client        *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	currency      string
	timeout       time.Duration
	log           *logger.Logger
}

func NewStripeGateway(cfg config.StripeConfig, currency string, log *logger.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(cfg.SecretKey, nil)

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeGateway{
		client:        sc,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		currency:      currency,
		timeout:       cfg.Timeout,
		log:           log,
	}, nil
}

func (g *StripeGateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	// Every provider call is bounded; a hung Stripe request must never hold
	// a webhook or sync handler open.
	return context.WithTimeout(ctx, g.timeout)
}

// CreateCheckoutSession opens a hosted checkout flow for a pending order. The
// ticket line item and the optional tip line are priced from the order's
// snapshot, not from the live catalog.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, order *models.Order, ticket *models.Ticket, event *models.Event) (*models.CheckoutSession, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	productName := ticket.Name
	if event != nil && event.Name != "" {
		productName = fmt.Sprintf("%s - %s", event.Name, ticket.Name)
	}

	lineItems := []*stripe.CheckoutSessionLineItemParams{
		{
			Quantity: stripe.Int64(order.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(order.UnitPriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(productName),
				},
			},
		},
	}
	if order.TipCents > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(order.TipCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Tip"),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id": order.OrderID,
				"user_id":  order.UserID,
			},
		},
	}
	params.Context = ctx

	sess, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session for order %s: %v", order.OrderID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	result := &models.CheckoutSession{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	}
	// Stripe may create the payment intent lazily; the order can always be
	// located by session id until the intent id arrives with the webhook.
	if sess.PaymentIntent != nil {
		result.PaymentIntentID = sess.PaymentIntent.ID
	}

	g.log.Info("STRIPE", fmt.Sprintf("Created checkout session %s for order %s", sess.ID, order.OrderID))
	return result, nil
}

func (g *StripeGateway) GetPaymentIntent(ctx context.Context, ref string) (*models.PaymentIntentInfo, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.Get(ref, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", ref, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	return &models.PaymentIntentInfo{
		ID:     pi.ID,
		Status: string(pi.Status),
	}, nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSessionInfo, error) {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.client.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve checkout session %s: %v", sessionID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}

	info := &models.CheckoutSessionInfo{
		ID:            sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
	}
	if sess.PaymentIntent != nil {
		info.PaymentIntentID = sess.PaymentIntent.ID
	}
	return info, nil
}

// VerifyWebhookSignature checks the provider signature header against the raw
// payload and decodes the event into the neutral form the order core
// dispatches on. Unverified payloads are never decoded further.
func (g *StripeGateway) VerifyWebhookSignature(payload []byte, sigHeader string) (models.ProviderEvent, error) {
	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, opts)
	if err != nil {
		g.log.Error("WEBHOOK", fmt.Sprintf("Webhook signature verification failed: %v", err))
		return models.ProviderEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	parsed := models.ProviderEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	switch event.Type {
	case models.EventTypePaymentSucceeded, models.EventTypePaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			g.log.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal payment intent: %v", err))
			return models.ProviderEvent{}, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
		}
		parsed.PaymentIntentID = pi.ID
	case models.EventTypeSessionCompleted, models.EventTypeSessionExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			g.log.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal checkout session: %v", err))
			return models.ProviderEvent{}, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
		}
		parsed.SessionID = sess.ID
		parsed.PaymentStatus = string(sess.PaymentStatus)
		if sess.PaymentIntent != nil {
			parsed.PaymentIntentID = sess.PaymentIntent.ID
		}
	}

	return parsed, nil
}
