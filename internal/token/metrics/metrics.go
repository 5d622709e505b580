package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type Metrics struct {
	Minted    prometheus.Counter
	Supply    prometheus.Gauge
	Transfers *prometheus.CounterVec
	Locks     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Minted: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_token_minted_units_total",
			Help: "Gold token units minted",
		}),
		Supply: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_token_total_supply_units",
			Help: "Gold token units outstanding",
		}),
		Transfers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_token_transfers_total",
			Help: "Token transfer attempts by outcome",
		}, []string{"outcome"}),
		Locks: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_token_transfer_locks_set_total",
			Help: "Post-maturation transfer locks set or extended",
		}),
	}
}

func (m *Metrics) ObserveMint(amount, supply decimal.Decimal) {
	if m == nil {
		return
	}
	m.Minted.Add(amount.InexactFloat64())
	m.Supply.Set(supply.InexactFloat64())
}

func (m *Metrics) ObserveTransfer(outcome string) {
	if m == nil {
		return
	}
	m.Transfers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLock() {
	if m == nil {
		return
	}
	m.Locks.Inc()
}
