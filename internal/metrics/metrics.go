package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	OrdersCreated     prometheus.Counter
	Settlements       *prometheus.CounterVec
	SettlementRetries prometheus.Counter
	TokenRotations    prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
	HTTPLatencyMS     *prometheus.HistogramVec
}

// New creates and registers the service metrics on reg. Tests pass a
// fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novamart",
			Subsystem: "commerce",
			Name:      "orders_created_total",
			Help:      "Total number of orders created.",
		}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novamart",
			Subsystem: "commerce",
			Name:      "order_settlements_total",
			Help:      "Total number of order settlements by outcome.",
		}, []string{"outcome"}),
		SettlementRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novamart",
			Subsystem: "commerce",
			Name:      "order_settlement_retries_total",
			Help:      "Total number of settlement transaction retries.",
		}),
		TokenRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novamart",
			Subsystem: "commerce",
			Name:      "refresh_token_rotations_total",
			Help:      "Total number of refresh token rotations.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novamart",
			Subsystem: "commerce",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "novamart",
			Subsystem: "commerce",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
	}

	reg.MustRegister(
		m.OrdersCreated,
		m.Settlements,
		m.SettlementRetries,
		m.TokenRotations,
		m.HTTPRequests,
		m.HTTPLatencyMS,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
