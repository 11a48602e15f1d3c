package moderation

import (
	"errors"

	"skillswap/internal/errs"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts admin actions. A nil *Metrics records nothing.
type Metrics struct {
	actions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillswap",
			Subsystem: "moderation",
			Name:      "actions_total",
			Help:      "Moderation actions by action and outcome.",
		}, []string{"action", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.actions)
	}
	return m
}

func (m *Metrics) observe(action string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrAlreadyProcessed):
		outcome = "already_processed"
	case errors.Is(err, errs.ErrUnauthorized):
		outcome = "unauthorized"
	default:
		outcome = "error"
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}
