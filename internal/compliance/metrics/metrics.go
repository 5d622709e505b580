package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks compliance decisions and automatic blocks.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	AutoBlocks    prometheus.Counter
	Admissions    *prometheus.CounterVec
	ConditionErrs prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_compliance_decisions_total",
			Help: "Compliance decisions by action and failing reason (empty reason means allowed)",
		}, []string{"action", "reason"}),
		AutoBlocks: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_compliance_auto_blocks_total",
			Help: "Holders promoted to the global block list by risk score",
		}),
		Admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_compliance_participants_admitted_total",
			Help: "First-time participants admitted by jurisdiction",
		}, []string{"jurisdiction"}),
		ConditionErrs: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_compliance_condition_errors_total",
			Help: "Action conditions that failed to evaluate (treated as denials)",
		}),
	}
}

func (m *Metrics) ObserveDecision(action, reason string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(action, reason).Inc()
}

func (m *Metrics) IncAutoBlock() {
	if m == nil {
		return
	}
	m.AutoBlocks.Inc()
}

func (m *Metrics) IncAdmitted(jurisdiction string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(jurisdiction).Inc()
}

func (m *Metrics) IncConditionError() {
	if m == nil {
		return
	}
	m.ConditionErrs.Inc()
}
