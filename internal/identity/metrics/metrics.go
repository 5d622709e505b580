package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks identity issuance by level and accreditation and the number
// of active credentials.
type Metrics struct {
	Issued   *prometheus.CounterVec
	Revoked  prometheus.Counter
	Active   prometheus.Gauge
	Rejected *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_identity_issued_total",
			Help: "Identity credentials issued by KYC level and accreditation",
		}, []string{"level", "accreditation"}),
		Revoked: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_identity_revoked_total",
			Help: "Identity credentials revoked",
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_identity_active",
			Help: "Identity credentials currently active (not revoked)",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_identity_issue_rejected_total",
			Help: "Rejected issuance attempts by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) IncIssued(level, accreditation string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(level, accreditation).Inc()
	m.Active.Inc()
}

func (m *Metrics) IncRevoked() {
	if m == nil {
		return
	}
	m.Revoked.Inc()
	m.Active.Dec()
}

func (m *Metrics) IncRejected(code string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(code).Inc()
}
