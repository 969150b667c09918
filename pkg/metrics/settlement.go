package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics counts payment settlement outcomes per payment method.
type SettlementMetrics struct {
	placed    *prometheus.CounterVec
	settled   *prometheus.CounterVec
	failed    *prometheus.CounterVec
	unwound   *prometheus.CounterVec
	unsettled prometheus.Gauge
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders persisted per payment method.",
	}, []string{"method"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_settled_total",
		Help: "Payments confirmed settled per payment method.",
	}, []string{"method"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Settlement attempts that failed per payment method.",
	}, []string{"method"})
	unwound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_unwound_total",
		Help: "Orders deleted after a gateway session could not be created.",
	}, []string{"method"})
	unsettled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orders_unsettled",
		Help: "Aged orders still awaiting settlement, from the last audit run.",
	})
	reg.MustRegister(placed, settled, failed, unwound, unsettled)
	return &SettlementMetrics{
		placed:    placed,
		settled:   settled,
		failed:    failed,
		unwound:   unwound,
		unsettled: unsettled,
	}
}

func (s *SettlementMetrics) IncPlaced(method string) {
	if s == nil || s.placed == nil {
		return
	}
	s.placed.WithLabelValues(normalizeLabel(method)).Inc()
}

func (s *SettlementMetrics) IncSettled(method string) {
	if s == nil || s.settled == nil {
		return
	}
	s.settled.WithLabelValues(normalizeLabel(method)).Inc()
}

func (s *SettlementMetrics) IncFailed(method string) {
	if s == nil || s.failed == nil {
		return
	}
	s.failed.WithLabelValues(normalizeLabel(method)).Inc()
}

func (s *SettlementMetrics) IncUnwound(method string) {
	if s == nil || s.unwound == nil {
		return
	}
	s.unwound.WithLabelValues(normalizeLabel(method)).Inc()
}

// SetUnsettled records the count found by the unsettled-orders audit.
func (s *SettlementMetrics) SetUnsettled(n int) {
	if s == nil || s.unsettled == nil {
		return
	}
	s.unsettled.Set(float64(n))
}
