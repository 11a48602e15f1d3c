package swap

import (
	"errors"

	"skillswap/internal/errs"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts state machine outcomes. A nil *Metrics records nothing.
type Metrics struct {
	transitions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillswap",
			Subsystem: "swap",
			Name:      "transitions_total",
			Help:      "Swap request transitions by transition and outcome.",
		}, []string{"transition", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions)
	}
	return m
}

func (m *Metrics) observe(transition string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome(err)).Inc()
}

func (m *Metrics) noop(transition string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, "noop").Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInvalidTransition):
		return "invalid"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, errs.ErrValidation):
		return "rejected"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
