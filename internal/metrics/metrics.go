package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tourgo_bookings_created_total",
			Help: "Number of bookings created",
		},
	)

	WebhooksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourgo_webhooks_received_total",
			Help: "Number of webhook deliveries received per provider",
		},
		[]string{"provider"},
	)

	WebhooksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourgo_webhooks_failed_total",
			Help: "Number of webhook deliveries that failed processing per provider",
		},
		[]string{"provider"},
	)

	WebhookHandlingTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tourgo_webhook_handling_seconds",
			Help: "Time taken to handle a webhook delivery",
		},
		[]string{"provider"},
	)
)

func Register() {
	prometheus.MustRegister(
		BookingsCreated,
		WebhooksReceived,
		WebhooksFailed,
		WebhookHandlingTime,
	)
}
