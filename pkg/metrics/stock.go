package metrics

import "github.com/prometheus/client_golang/prometheus"

// Stock adjustment outcomes.
const (
	StockApplied      = "applied"
	StockInsufficient = "insufficient"
	StockNotFound     = "not_found"
	StockDeleted      = "deleted"
	StockError        = "error"
)

// StockMetrics tracks stock adjustment traffic.
type StockMetrics struct {
	adjustments *prometheus.CounterVec
	units       *prometheus.CounterVec
}

// NewStockMetrics registers the stock metrics. A nil registerer yields a
// no-op recorder.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_adjustments_total",
		Help:      "Stock adjustment attempts by outcome.",
	}, []string{"outcome"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_units_total",
		Help:      "Units moved by applied stock adjustments.",
	}, []string{"direction"})
	reg.MustRegister(adjustments, units)
	return &StockMetrics{adjustments: adjustments, units: units}
}

// ObserveAdjustment records one attempt; delta is only counted when applied.
func (m *StockMetrics) ObserveAdjustment(outcome string, delta int) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(outcome).Inc()
	if outcome != StockApplied || delta == 0 {
		return
	}
	if delta > 0 {
		m.units.WithLabelValues("in").Add(float64(delta))
		return
	}
	m.units.WithLabelValues("out").Add(float64(-delta))
}
