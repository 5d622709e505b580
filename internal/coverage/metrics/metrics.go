package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks reports, aggregation outcomes and the published ratio.
type Metrics struct {
	Reports      *prometheus.CounterVec
	Aggregations *prometheus.CounterVec
	Excluded     *prometheus.CounterVec
	RatioBps     prometheus.Gauge
	Breaches     prometheus.Counter
	Halted       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_coverage_reports_total",
			Help: "Accepted reserve reports by source",
		}, []string{"source"}),
		Aggregations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_coverage_aggregations_total",
			Help: "Aggregation rounds by outcome (ok, failed)",
		}, []string{"outcome"}),
		Excluded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_coverage_source_exclusions_total",
			Help: "Sources dropped from an aggregation round for deviating from the median",
		}, []string{"source"}),
		RatioBps: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_coverage_ratio_bps",
			Help: "Latest aggregated coverage ratio in basis points",
		}),
		Breaches: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_coverage_breaches_total",
			Help: "Aggregates published below the coverage floor",
		}),
		Halted: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_coverage_emergency_halt",
			Help: "1 while the emergency halt is engaged",
		}),
	}
}

func (m *Metrics) IncReport(source string) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveAggregation(ok bool, ratioBps uint64, excluded []string) {
	if m == nil {
		return
	}
	if !ok {
		m.Aggregations.WithLabelValues("failed").Inc()
		return
	}
	m.Aggregations.WithLabelValues("ok").Inc()
	m.RatioBps.Set(float64(ratioBps))
	for _, s := range excluded {
		m.Excluded.WithLabelValues(s).Inc()
	}
}

func (m *Metrics) IncBreach() {
	if m == nil {
		return
	}
	m.Breaches.Inc()
}

func (m *Metrics) SetHalted(halted bool) {
	if m == nil {
		return
	}
	if halted {
		m.Halted.Set(1)
		return
	}
	m.Halted.Set(0)
}
