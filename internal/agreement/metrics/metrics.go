package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Recorded *prometheus.CounterVec
	Revoked  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Recorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_agreements_recorded_total",
			Help: "Agreements anchored by document type",
		}, []string{"doc_type"}),
		Revoked: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_agreements_revoked_total",
			Help: "Agreements revoked",
		}),
	}
}

func (m *Metrics) IncRecorded(docType string) {
	if m == nil {
		return
	}
	m.Recorded.WithLabelValues(docType).Inc()
}

func (m *Metrics) IncRevoked() {
	if m == nil {
		return
	}
	m.Revoked.Inc()
}
