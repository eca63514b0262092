package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics counts cart mutations by operation and outcome.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	bundles   *prometheus.CounterVec
}

// NewCartMetrics registers the cart counters on reg.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart operations by type and result.",
	}, []string{"op", "result"})
	bundles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_bundle_evaluations_total",
		Help: "Cart views by whether the tee bundle applied.",
	}, []string{"applied"})
	reg.MustRegister(mutations, bundles)
	return &CartMetrics{mutations: mutations, bundles: bundles}
}

func (m *CartMetrics) ObserveMutation(op, result string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

func (m *CartMetrics) ObserveBundle(applied bool) {
	if m == nil || m.bundles == nil {
		return
	}
	m.bundles.WithLabelValues(strconv.FormatBool(applied)).Inc()
}
