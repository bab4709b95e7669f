package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-checkout/internal/models"
	"ms-checkout/internal/pricing"
)

func fixedTicket(basePriceCents int64) *models.Ticket {
	return &models.Ticket{
		TicketID:       "ticket-1",
		EventID:        "event-1",
		Name:           "General Admission",
		BasePriceCents: basePriceCents,
		PricingModel:   models.PricingModelFixed,
	}
}

func flexibleTicket(basePriceCents, minimumPriceCents int64) *models.Ticket {
	return &models.Ticket{
		TicketID:          "ticket-2",
		EventID:           "event-1",
		Name:              "Pay What You Want",
		BasePriceCents:    basePriceCents,
		PricingModel:      models.PricingModelFlexible,
		MinimumPriceCents: minimumPriceCents,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestCalculateFixedPrice(t *testing.T) {
	// 2500 cents x 2 with no tip
	snap, err := pricing.Calculate(fixedTicket(2500), 2, nil, 0)

	assert.NoError(t, err)
	assert.Equal(t, int64(2500), snap.UnitPriceCents)
	assert.Equal(t, int64(5000), snap.SubtotalCents)
	assert.Equal(t, int64(5000), snap.TotalCents)
	assert.Equal(t, models.PricingModelFixed, snap.PricingModel)
}

func TestCalculateFixedPriceRejectsCustomPrice(t *testing.T) {
	_, err := pricing.Calculate(fixedTicket(2500), 1, int64Ptr(100), 0)

	assert.ErrorIs(t, err, pricing.ErrCustomPriceNotAllowed)
}

func TestCalculateFlexiblePrice(t *testing.T) {
	snap, err := pricing.Calculate(flexibleTicket(2000, 1000), 3, int64Ptr(1500), 0)

	assert.NoError(t, err)
	assert.Equal(t, int64(1500), snap.UnitPriceCents)
	assert.Equal(t, int64(4500), snap.SubtotalCents)
	assert.Equal(t, int64(4500), snap.TotalCents)
}

func TestCalculateFlexiblePriceBelowMinimum(t *testing.T) {
	// 500 cents offered against a 1000 cent minimum
	_, err := pricing.Calculate(flexibleTicket(2000, 1000), 1, int64Ptr(500), 0)

	assert.ErrorIs(t, err, pricing.ErrBelowMinimumPrice)
}

func TestCalculateFlexiblePriceRequiresCustomPrice(t *testing.T) {
	_, err := pricing.Calculate(flexibleTicket(2000, 1000), 1, nil, 0)

	assert.ErrorIs(t, err, pricing.ErrCustomPriceRequired)
}

func TestCalculateTip(t *testing.T) {
	ticket := fixedTicket(2500)
	ticket.Tippable = true

	snap, err := pricing.Calculate(ticket, 2, nil, 300)

	assert.NoError(t, err)
	assert.Equal(t, int64(5000), snap.SubtotalCents)
	assert.Equal(t, int64(300), snap.TipCents)
	assert.Equal(t, int64(5300), snap.TotalCents)
}

func TestCalculateTipRejectedOnNonTippableTicket(t *testing.T) {
	_, err := pricing.Calculate(fixedTicket(2500), 1, nil, 300)

	assert.ErrorIs(t, err, pricing.ErrTipNotAllowed)
}

func TestCalculateZeroTipAllowedOnNonTippableTicket(t *testing.T) {
	snap, err := pricing.Calculate(fixedTicket(2500), 1, nil, 0)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), snap.TipCents)
}

func TestCalculateInvalidQuantity(t *testing.T) {
	_, err := pricing.Calculate(fixedTicket(2500), 0, nil, 0)
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)

	_, err = pricing.Calculate(fixedTicket(2500), -1, nil, 0)
	assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)
}

func TestCalculateNegativeTip(t *testing.T) {
	_, err := pricing.Calculate(fixedTicket(2500), 1, nil, -100)
	assert.ErrorIs(t, err, pricing.ErrNegativeTip)
}

func TestSnapshotInvariants(t *testing.T) {
	ticket := flexibleTicket(2000, 1000)
	ticket.Tippable = true

	cases := []struct {
		quantity int64
		custom   int64
		tip      int64
	}{
		{1, 1000, 0},
		{4, 1250, 200},
		{10, 9999, 1},
	}

	for _, tc := range cases {
		snap, err := pricing.Calculate(ticket, tc.quantity, int64Ptr(tc.custom), tc.tip)
		assert.NoError(t, err)
		assert.Equal(t, snap.UnitPriceCents*snap.Quantity, snap.SubtotalCents)
		assert.Equal(t, snap.SubtotalCents+snap.TipCents, snap.TotalCents)
	}
}
