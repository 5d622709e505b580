package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	EpochsStarted  prometheus.Counter
	CurrentEpoch   prometheus.Gauge
	EligibleSupply prometheus.Gauge
	Claims         *prometheus.CounterVec
	ClaimedUnits   prometheus.Counter
	Upkeeps        *prometheus.CounterVec
	CooldownMisses prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EpochsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_yield_epochs_started_total",
			Help: "Yield epochs opened",
		}),
		CurrentEpoch: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_yield_current_epoch",
			Help: "Number of the open yield epoch",
		}),
		EligibleSupply: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_yield_eligible_supply_units",
			Help: "Eligible supply snapshot of the last finalized epoch",
		}),
		Claims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_yield_claims_total",
			Help: "Yield claim attempts by outcome",
		}, []string{"outcome"}),
		ClaimedUnits: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_yield_claimed_units_total",
			Help: "Token units paid out as yield",
		}),
		Upkeeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_yield_upkeeps_total",
			Help: "Keeper upkeep calls by outcome",
		}, []string{"outcome"}),
		CooldownMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_yield_cooldown_record_failures_total",
			Help: "Paid claims whose compliance cooldown was not recorded",
		}),
	}
}

func (m *Metrics) ObserveEpoch(number uint64, eligible decimal.Decimal) {
	if m == nil {
		return
	}
	m.EpochsStarted.Inc()
	m.CurrentEpoch.Set(float64(number))
	m.EligibleSupply.Set(eligible.InexactFloat64())
}

func (m *Metrics) ObserveClaim(outcome string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.Claims.WithLabelValues(outcome).Inc()
	if amount.IsPositive() {
		m.ClaimedUnits.Add(amount.InexactFloat64())
	}
}

func (m *Metrics) ObserveUpkeep(outcome string) {
	if m == nil {
		return
	}
	m.Upkeeps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCooldownMiss() {
	if m == nil {
		return
	}
	m.CooldownMisses.Inc()
}
