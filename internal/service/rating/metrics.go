package rating

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts submitted ratings. A nil *Metrics records nothing.
type Metrics struct {
	submitted *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillswap",
			Subsystem: "rating",
			Name:      "submitted_total",
			Help:      "Ratings folded into member aggregates, by score.",
		}, []string{"score"}),
	}
	if reg != nil {
		reg.MustRegister(m.submitted)
	}
	return m
}

func (m *Metrics) observe(score string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(score).Inc()
}
