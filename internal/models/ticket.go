package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is a purchasable ticket type for an event. This service only reads
// tickets; catalog CRUD is owned by the event service.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID          string    `bun:"ticket_id,pk" json:"ticket_id"`
	EventID           string    `bun:"event_id,notnull" json:"event_id"`
	Name              string    `bun:"name" json:"name"`
	BasePriceCents    int64     `bun:"base_price_cents,notnull" json:"base_price_cents"`
	PricingModel      string    `bun:"pricing_model,notnull" json:"pricing_model"`
	MinimumPriceCents int64     `bun:"minimum_price_cents" json:"minimum_price_cents"`
	Tippable          bool      `bun:"tippable" json:"tippable"`
	TotalQuantity     int64     `bun:"total_quantity,notnull" json:"total_quantity"`
	StartsAt          time.Time `bun:"starts_at" json:"starts_at"`
	EndsAt            time.Time `bun:"ends_at" json:"ends_at"`
	CreatedAt         time.Time `bun:"created_at" json:"created_at"`
}

// SaleActiveAt reports whether the ticket is on sale at the given instant.
func (t *Ticket) SaleActiveAt(now time.Time) bool {
	if !t.StartsAt.IsZero() && now.Before(t.StartsAt) {
		return false
	}
	if !t.EndsAt.IsZero() && now.After(t.EndsAt) {
		return false
	}
	return true
}
