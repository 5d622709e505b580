package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var base = decimal.New(1, 18)

// Metrics tracks credited proofs, rejections and credit movements. USD
// amounts are exported in whole dollars.
type Metrics struct {
	Credited    *prometheus.CounterVec
	CreditedUSD *prometheus.CounterVec
	Rejected    *prometheus.CounterVec
	Withdrawn   prometheus.Counter
	Reversed    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Credited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_deposit_proofs_credited_total",
			Help: "Deposit proofs credited by source chain",
		}, []string{"chain"}),
		CreditedUSD: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_deposit_credited_usd_total",
			Help: "USD credited after fees by source chain",
		}, []string{"chain"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_deposit_proofs_rejected_total",
			Help: "Deposit proofs rejected by error code",
		}, []string{"code"}),
		Withdrawn: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_deposit_withdrawals_total",
			Help: "Credit withdrawals disbursed",
		}),
		Reversed: f.NewCounter(prometheus.CounterOpts{
			Name: "aurum_deposit_withdrawals_reversed_total",
			Help: "Withdrawals re-credited after a failed disbursement",
		}),
	}
}

func (m *Metrics) ObserveCredit(chain string, usd decimal.Decimal) {
	if m == nil {
		return
	}
	m.Credited.WithLabelValues(chain).Inc()
	m.CreditedUSD.WithLabelValues(chain).Add(usd.Div(base).InexactFloat64())
}

func (m *Metrics) IncRejected(code string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(code).Inc()
}

func (m *Metrics) IncWithdrawn() {
	if m == nil {
		return
	}
	m.Withdrawn.Inc()
}

func (m *Metrics) IncReversed() {
	if m == nil {
		return
	}
	m.Reversed.Inc()
}
