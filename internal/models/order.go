package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
)

const (
	PricingModelFixed    = "fixed"
	PricingModelFlexible = "flexible"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID           string     `bun:"order_id,pk" json:"order_id"`
	UserID            string     `bun:"user_id,notnull" json:"user_id"`
	TicketID          string     `bun:"ticket_id,notnull" json:"ticket_id"`
	EventID           string     `bun:"event_id" json:"event_id"`
	Quantity          int64      `bun:"quantity,notnull" json:"quantity"`
	Status            string     `bun:"status,notnull" json:"status"`
	UnitPriceCents    int64      `bun:"unit_price_cents,notnull" json:"unit_price_cents"`
	PricingModel      string     `bun:"pricing_model,notnull" json:"pricing_model"`
	CustomPriceCents  *int64     `bun:"custom_price_cents" json:"custom_price_cents,omitempty"`
	MinimumPriceCents int64      `bun:"minimum_price_cents" json:"minimum_price_cents"`
	TipCents          int64      `bun:"tip_cents" json:"tip_cents"`
	SubtotalCents     int64      `bun:"subtotal_cents,notnull" json:"subtotal_cents"`
	TotalCents        int64      `bun:"total_cents,notnull" json:"total_cents"`
	PaymentReference  string     `bun:"payment_reference,nullzero" json:"payment_reference,omitempty"`
	StripeSessionID   string     `bun:"stripe_session_id,nullzero" json:"stripe_session_id,omitempty"`
	ConfirmedAt       *time.Time `bun:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt         time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// PricingSnapshot is the immutable record of how an order's price was computed
// at creation time. It is copied onto the order row verbatim and never
// recomputed from the live ticket price.
type PricingSnapshot struct {
	UnitPriceCents    int64  `json:"unit_price_cents"`
	Quantity          int64  `json:"quantity"`
	SubtotalCents     int64  `json:"subtotal_cents"`
	TipCents          int64  `json:"tip_cents"`
	TotalCents        int64  `json:"total_cents"`
	PricingModel      string `json:"pricing_model"`
	CustomPriceCents  *int64 `json:"custom_price_cents,omitempty"`
	MinimumPriceCents int64  `json:"minimum_price_cents"`
}

// ApplySnapshot copies a pricing snapshot onto the order row.
func (o *Order) ApplySnapshot(s PricingSnapshot) {
	o.UnitPriceCents = s.UnitPriceCents
	o.Quantity = s.Quantity
	o.SubtotalCents = s.SubtotalCents
	o.TipCents = s.TipCents
	o.TotalCents = s.TotalCents
	o.PricingModel = s.PricingModel
	o.CustomPriceCents = s.CustomPriceCents
	o.MinimumPriceCents = s.MinimumPriceCents
}
