package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	paymentNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notifications_total",
			Help: "Gateway notifications by processing result",
		},
		[]string{"result"},
	)

	paymentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_transitions_total",
			Help: "Applied order payment status transitions",
		},
		[]string{"from", "to", "source"},
	)

	inventoryDebitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_debits_total",
			Help: "Inventory debit attempts by result",
		},
		[]string{"result"},
	)

	eventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Domain events dropped before reaching the broker",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(paymentNotificationsTotal)
	prometheus.MustRegister(paymentTransitionsTotal)
	prometheus.MustRegister(inventoryDebitsTotal)
	prometheus.MustRegister(eventsDroppedTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(method, endpoint, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

func RecordNotification(result string) {
	paymentNotificationsTotal.WithLabelValues(result).Inc()
}

func RecordTransition(from, to, source string) {
	paymentTransitionsTotal.WithLabelValues(from, to, source).Inc()
}

func RecordInventoryDebit(result string) {
	inventoryDebitsTotal.WithLabelValues(result).Inc()
}

func RecordEventDropped(topic string) {
	eventsDroppedTotal.WithLabelValues(topic).Inc()
}
