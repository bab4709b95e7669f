package pricing

import (
	"errors"

	"ms-checkout/internal/models"
)

// Validation failures (caller sent something malformed).
var (
	ErrInvalidQuantity       = errors.New("quantity must be a positive integer")
	ErrNegativeTip           = errors.New("tip must not be negative")
	ErrCustomPriceNotAllowed = errors.New("custom price not allowed for fixed-price tickets")
	ErrCustomPriceRequired   = errors.New("custom price required for flexible-price tickets")
	ErrTipNotAllowed         = errors.New("this ticket does not accept tips")
)

// Pricing violations (caller tried to underpay).
var (
	ErrBelowMinimumPrice = errors.New("custom price is below the ticket minimum")
)

// Calculate builds the immutable pricing snapshot for an order. Pure: no
// clock, no I/O. The snapshot is persisted verbatim at creation time and is
// never recomputed from the live ticket price.
//
// Fixed-price tickets reject a supplied custom price outright rather than
// ignoring it, so a client bug can never silently underprice an order.
// Flexible-price tickets require a custom price at or above the minimum.
func Calculate(ticket *models.Ticket, quantity int64, customPriceCents *int64, tipCents int64) (models.PricingSnapshot, error) {
	var snap models.PricingSnapshot

	if quantity <= 0 {
		return snap, ErrInvalidQuantity
	}
	if tipCents < 0 {
		return snap, ErrNegativeTip
	}
	if tipCents > 0 && !ticket.Tippable {
		return snap, ErrTipNotAllowed
	}

	var unitPrice int64
	model := ticket.PricingModel
	switch model {
	case models.PricingModelFlexible:
		if customPriceCents == nil {
			return snap, ErrCustomPriceRequired
		}
		if *customPriceCents < ticket.MinimumPriceCents {
			return snap, ErrBelowMinimumPrice
		}
		unitPrice = *customPriceCents
	default:
		// Fixed is the default model for tickets created before the
		// pricing_model column existed.
		model = models.PricingModelFixed
		if customPriceCents != nil {
			return snap, ErrCustomPriceNotAllowed
		}
		unitPrice = ticket.BasePriceCents
	}

	subtotal := unitPrice * quantity

	snap = models.PricingSnapshot{
		UnitPriceCents:    unitPrice,
		Quantity:          quantity,
		SubtotalCents:     subtotal,
		TipCents:          tipCents,
		TotalCents:        subtotal + tipCents,
		PricingModel:      model,
		CustomPriceCents:  customPriceCents,
		MinimumPriceCents: ticket.MinimumPriceCents,
	}
	return snap, nil
}
