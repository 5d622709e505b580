package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	Created        *prometheus.CounterVec
	Matured        prometheus.Counter
	Rejected       *prometheus.CounterVec
	AllocatedUnits prometheus.Gauge
	SubscribeTime  prometheus.Histogram
	// CooldownMisses counts successful actions whose cooldown could not be
	// recorded.
	CooldownMisses *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_subscriptions_created_total",
			Help: "Subscriptions created, by lock mode",
		}, []string{"lock_mode"}),
		Matured: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_subscriptions_matured_total",
			Help: "Subscriptions matured into token issuance",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_subscription_rejections_total",
			Help: "Subscribe and mature calls refused, by operation and error code",
		}, []string{"op", "code"}),
		AllocatedUnits: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_subscription_allocated_units",
			Help: "Units allocated against the program cap",
		}),
		SubscribeTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aurum_subscribe_duration_seconds",
			Help:    "Time spent in subscribe",
			Buckets: prometheus.DefBuckets,
		}),
		CooldownMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_subscription_cooldown_record_failures_total",
			Help: "Subscribe and mature calls whose compliance cooldown was not recorded, by action",
		}, []string{"action"}),
	}
}

func (m *Metrics) ObserveCreated(lockMode string, allocated decimal.Decimal, seconds float64) {
	if m == nil {
		return
	}
	m.Created.WithLabelValues(lockMode).Inc()
	m.AllocatedUnits.Set(allocated.InexactFloat64())
	m.SubscribeTime.Observe(seconds)
}

func (m *Metrics) IncMatured() {
	if m == nil {
		return
	}
	m.Matured.Inc()
}

func (m *Metrics) IncRejected(op, code string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(op, code).Inc()
}

func (m *Metrics) IncCooldownMiss(action string) {
	if m == nil {
		return
	}
	m.CooldownMisses.WithLabelValues(action).Inc()
}
