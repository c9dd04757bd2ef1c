package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutation and stock reservation outcomes.
type CartMetrics struct {
	opDuration   *prometheus.HistogramVec
	opResults    *prometheus.CounterVec
	reservations *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_op_duration_seconds",
		Help:    "Duration of cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	opResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_op_total",
		Help: "Cart operations by outcome.",
	}, []string{"op", "result"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservation_total",
		Help: "Stock reservation attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(opDuration, opResults, reservations)
	return &CartMetrics{
		opDuration:   opDuration,
		opResults:    opResults,
		reservations: reservations,
	}
}

// ObserveOp records the duration for the named cart operation.
func (c *CartMetrics) ObserveOp(op string, duration time.Duration) {
	if c == nil || c.opDuration == nil {
		return
	}
	c.opDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncOpResult increments the outcome counter for the named cart operation.
func (c *CartMetrics) IncOpResult(op, result string) {
	if c == nil || c.opResults == nil {
		return
	}
	c.opResults.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// IncReservation increments the reservation counter for the given outcome.
func (c *CartMetrics) IncReservation(outcome string) {
	if c == nil || c.reservations == nil {
		return
	}
	c.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
