// Package keeper runs the periodic automation jobs of the ledger: the yield
// epoch upkeep, maturation of subscriptions whose cliff has ended and coverage
// re-aggregation with staleness alerts. Every job runs as the keeper
// principal and fails independently of the others.
package keeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	coveragemodels "aurum/internal/coverage/models"
	submodels "aurum/internal/subscription/models"
	yieldmodels "aurum/internal/yield/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

type Upkeeper interface {
	PerformUpkeep(ctx context.Context) (*yieldmodels.Epoch, error)
}

type Maturer interface {
	MatureDue(ctx context.Context, limit int) ([]submodels.MaturationOutcome, error)
}

type Oracle interface {
	Aggregate(ctx context.Context) (*coveragemodels.Aggregate, error)
	Health(ctx context.Context) (*coveragemodels.Health, error)
}

const (
	JobYieldUpkeep     = "yield_upkeep"
	JobMatureDue       = "mature_due"
	JobCoverageRefresh = "coverage_refresh"

	OutcomeDone    = "done"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

const (
	defaultInterval  = time.Minute
	defaultBatchSize = 50
)

type Metrics struct {
	Runs *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_keeper_job_runs_total",
			Help: "Keeper job runs by job and outcome",
		}, []string{"job", "outcome"}),
	}
}

func (m *Metrics) observe(job, outcome string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(job, outcome).Inc()
}

// Keeper drives the jobs on a ticker. Any of yield, subscriptions or oracle
// may be nil, in which case that job is not scheduled.
type Keeper struct {
	actor         id.Address
	yield         Upkeeper
	subscriptions Maturer
	oracle        Oracle
	interval      time.Duration
	batchSize     int
	now           func() time.Time
	logger        *slog.Logger
	metrics       *Metrics
}

type Option func(*Keeper)

func WithYield(u Upkeeper) Option {
	return func(k *Keeper) {
		k.yield = u
	}
}

func WithSubscriptions(m Maturer) Option {
	return func(k *Keeper) {
		k.subscriptions = m
	}
}

func WithOracle(o Oracle) Option {
	return func(k *Keeper) {
		k.oracle = o
	}
}

func WithInterval(d time.Duration) Option {
	return func(k *Keeper) {
		if d > 0 {
			k.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(k *Keeper) {
		if n > 0 {
			k.batchSize = n
		}
	}
}

// WithClock replaces the wall clock used to stamp each tick.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) {
		k.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(k *Keeper) {
		k.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(k *Keeper) {
		k.metrics = m
	}
}

func New(actor id.Address, opts ...Option) *Keeper {
	k := &Keeper{
		actor:     actor,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Run ticks until ctx is cancelled.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		k.Tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Report is the outcome of one tick, per job.
type Report struct {
	Outcomes map[string]string
	Epoch    *yieldmodels.Epoch
	Matured  int
	Health   *coveragemodels.Health
}

// Tick runs every configured job once. The oracle is refreshed first so the
// maturation batch sees the current coverage.
func (k *Keeper) Tick(ctx context.Context) Report {
	ctx = requestcontext.WithTime(requestcontext.WithActor(ctx, k.actor), k.now().UTC())
	report := Report{Outcomes: make(map[string]string)}
	if k.oracle != nil {
		report.Outcomes[JobCoverageRefresh] = k.refreshCoverage(ctx, &report)
	}
	if k.subscriptions != nil {
		report.Outcomes[JobMatureDue] = k.matureDue(ctx, &report)
	}
	if k.yield != nil {
		report.Outcomes[JobYieldUpkeep] = k.upkeep(ctx, &report)
	}
	for job, outcome := range report.Outcomes {
		k.metrics.observe(job, outcome)
	}
	return report
}

func (k *Keeper) refreshCoverage(ctx context.Context, report *Report) string {
	outcome := OutcomeDone
	if _, err := k.oracle.Aggregate(ctx); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInsufficientSources) {
			k.logger.ErrorContext(ctx, "coverage aggregation failed", "error", err)
			return OutcomeFailed
		}
		k.logger.WarnContext(ctx, "coverage aggregation skipped", "error", err)
		outcome = OutcomeSkipped
	}
	h, err := k.oracle.Health(ctx)
	if err != nil {
		k.logger.ErrorContext(ctx, "coverage health check failed", "error", err)
		return OutcomeFailed
	}
	report.Health = h
	if !h.Healthy {
		k.logger.WarnContext(ctx, "coverage unhealthy",
			"reason", h.Reason,
			"ratio_bps", h.RatioBps,
		)
	}
	return outcome
}

func (k *Keeper) matureDue(ctx context.Context, report *Report) string {
	outcomes, err := k.subscriptions.MatureDue(ctx, k.batchSize)
	if err != nil {
		k.logger.ErrorContext(ctx, "maturation batch failed", "error", err)
		return OutcomeFailed
	}
	if len(outcomes) == 0 {
		return OutcomeSkipped
	}
	failed := 0
	for _, o := range outcomes {
		if o.Matured {
			report.Matured++
			continue
		}
		failed++
		k.logger.WarnContext(ctx, "subscription not matured",
			"subscription_id", o.ID.String(),
			"holder", o.Holder.String(),
			"error", o.Error,
		)
	}
	k.logger.InfoContext(ctx, "maturation batch ran",
		"matured", report.Matured,
		"failed", failed,
	)
	if report.Matured == 0 {
		return OutcomeFailed
	}
	return OutcomeDone
}

func (k *Keeper) upkeep(ctx context.Context, report *Report) string {
	e, err := k.yield.PerformUpkeep(ctx)
	if dErrors.HasCode(err, dErrors.CodeUpkeepNotNeeded) {
		return OutcomeSkipped
	}
	if err != nil {
		k.logger.ErrorContext(ctx, "yield upkeep failed", "error", err)
		return OutcomeFailed
	}
	report.Epoch = e
	k.logger.InfoContext(ctx, "yield epoch opened by upkeep",
		"epoch", e.Number.String(),
		"rate_bps", e.RateBps,
	)
	return OutcomeDone
}
