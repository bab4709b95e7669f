package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_orders_created_total",
			Help: "Total orders created through checkout",
		},
	)

	ordersConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_confirmed_total",
			Help: "Total order confirmations by source channel",
		},
		[]string{"source"},
	)

	webhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_webhooks_processed_total",
			Help: "Total provider webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	syncRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sync_requests_total",
			Help: "Total reconciliation requests by result",
		},
		[]string{"result"},
	)
)

func RecordOrderCreated() {
	ordersCreated.Inc()
}

// RecordOrderConfirmed counts a performed pending-to-confirmed transition.
// source is "webhook" or "sync".
func RecordOrderConfirmed(source string) {
	ordersConfirmed.WithLabelValues(source).Inc()
}

func RecordWebhook(outcome string) {
	webhooksProcessed.WithLabelValues(outcome).Inc()
}

func RecordSync(result string) {
	syncRequests.WithLabelValues(result).Inc()
}
