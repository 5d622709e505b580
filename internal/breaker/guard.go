// Package breaker gates issuance and payouts: an operation may proceed only
// while the ledger is not manually paused and the coverage oracle is healthy.
package breaker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"aurum/internal/access"
	"aurum/internal/platform/flags"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

type FlagStore interface {
	Get(ctx context.Context, name string) (flags.Flag, error)
	Set(ctx context.Context, f flags.Flag) error
}

// Oracle is the coverage oracle's health answer.
type Oracle interface {
	IsHealthy(ctx context.Context) (bool, uint64, error)
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Status is a snapshot of both gate inputs.
type Status struct {
	Paused      bool   `json:"paused"`
	PauseReason string `json:"pause_reason,omitempty"`
	Healthy     bool   `json:"healthy"`
	RatioBps    uint64 `json:"ratio_bps"`
	Open        bool   `json:"open"`
}

type Metrics struct {
	Blocked *prometheus.CounterVec
	Paused  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Blocked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_breaker_blocked_total",
			Help: "Gated operations refused by the circuit breaker, by reason",
		}, []string{"reason"}),
		Paused: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_breaker_paused",
			Help: "1 while the ledger is manually paused",
		}),
	}
}

func (m *Metrics) incBlocked(reason string) {
	if m == nil {
		return
	}
	m.Blocked.WithLabelValues(reason).Inc()
}

func (m *Metrics) setPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.Paused.Set(1)
		return
	}
	m.Paused.Set(0)
}

type Guard struct {
	flags  FlagStore
	oracle Oracle
	auth   Authorizer
	tx     tx.Runner

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *Metrics
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(g *Guard) {
		g.auditPublisher = publisher
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func WithTxRunner(r tx.Runner) Option {
	return func(g *Guard) {
		g.tx = r
	}
}

func New(flagStore FlagStore, oracle Oracle, auth Authorizer, opts ...Option) *Guard {
	g := &Guard{flags: flagStore, oracle: oracle, auth: auth}
	for _, opt := range opts {
		opt(g)
	}
	if g.tx == nil {
		g.tx = tx.NewLockRunner(0)
	}
	return g
}

// CheckPaused fails with CodePaused while the manual pause is engaged.
func (g *Guard) CheckPaused(ctx context.Context) error {
	pause, err := g.flags.Get(ctx, flags.Pause)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pause flag")
	}
	if pause.Active {
		g.metrics.incBlocked("paused")
		return dErrors.Newf(dErrors.CodePaused, "ledger is paused: %s", pause.Reason)
	}
	return nil
}

// Check is evaluated at the top of gated operations: paused OR unhealthy
// blocks.
func (g *Guard) Check(ctx context.Context) error {
	if err := g.CheckPaused(ctx); err != nil {
		return err
	}
	healthy, ratio, err := g.oracle.IsHealthy(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read coverage health")
	}
	if !healthy {
		g.metrics.incBlocked("coverage")
		return dErrors.Newf(dErrors.CodeCoverageBreached, "coverage unhealthy at %d bps", ratio)
	}
	return nil
}

func (g *Guard) Status(ctx context.Context) (*Status, error) {
	pause, err := g.flags.Get(ctx, flags.Pause)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pause flag")
	}
	healthy, ratio, err := g.oracle.IsHealthy(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read coverage health")
	}
	return &Status{
		Paused:      pause.Active,
		PauseReason: pause.Reason,
		Healthy:     healthy,
		RatioBps:    ratio,
		Open:        !pause.Active && healthy,
	}, nil
}

func (g *Guard) Pause(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return g.set(ctx, true, reason, audit.EventGuardPaused)
}

func (g *Guard) Unpause(ctx context.Context) error {
	return g.set(ctx, false, "", audit.EventGuardUnpaused)
}

func (g *Guard) set(ctx context.Context, active bool, reason string, event audit.AuditEvent) error {
	if err := g.auth.Require(ctx, access.Pauser); err != nil {
		return err
	}
	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := g.flags.Get(ctx, flags.Pause)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read pause flag")
		}
		if !active && !current.Active {
			return dErrors.New(dErrors.CodeConflict, "ledger is not paused")
		}
		if err := g.flags.Set(ctx, flags.Flag{
			Name:      flags.Pause,
			Active:    active,
			Reason:    reason,
			UpdatedBy: requestcontext.Actor(ctx),
			UpdatedAt: requestcontext.Now(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write pause flag")
		}
		if g.auditPublisher != nil {
			if err := g.auditPublisher.Emit(ctx, audit.Event{
				Action:   string(event),
				Entity:   "ledger",
				EntityID: flags.Pause,
				Before:   current.Reason,
				After:    reason,
				Reason:   reason,
			}); err != nil && g.logger != nil {
				g.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.metrics.setPaused(active)
	if g.logger != nil {
		g.logger.InfoContext(ctx, string(event),
			"event", string(event),
			"log_type", "audit",
			"reason", reason,
			"actor", requestcontext.Actor(ctx).String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil
}
