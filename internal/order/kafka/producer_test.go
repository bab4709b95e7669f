package kafka_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkout/internal/models"
	"ms-checkout/internal/order/kafka"
)

func TestProducerCloseClosesBothWriters(t *testing.T) {
	p := kafka.NewProducer([]string{"localhost:9092"}, "ticketly.order.created", "ticketly.order.confirmed")
	require.NoError(t, p.Close())

	ord := models.Order{OrderID: "order-1"}
	assert.Error(t, p.PublishOrderCreated(ord))
	assert.Error(t, p.PublishOrderConfirmed(ord))
}
