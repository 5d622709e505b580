// Package service implements the pull-based yield distributor. Epochs are
// opened by the treasury or the keeper; finalizing an epoch snapshots every
// eligible holder's basis, and holders then claim floor(basis * rate / 10000)
// from the treasury account once per (epoch, holder).
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aurum/internal/access"
	compliancemodels "aurum/internal/compliance/models"
	tokenmodels "aurum/internal/token/models"
	"aurum/internal/yield/metrics"
	"aurum/internal/yield/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

var tracer = otel.Tracer("aurum/internal/yield")

type Store interface {
	CreateEpoch(ctx context.Context, e *models.Epoch) error
	FindEpoch(ctx context.Context, n id.EpochNumber) (*models.Epoch, error)
	LatestEpoch(ctx context.Context) (*models.Epoch, error)
	ListEpochs(ctx context.Context) ([]models.Epoch, error)
	FinalizeEpoch(ctx context.Context, n id.EpochNumber, snapshot []models.Snapshot, supply decimal.Decimal, at time.Time) error
	FindSnapshot(ctx context.Context, n id.EpochNumber, holder id.Address) (decimal.Decimal, error)
	FindClaim(ctx context.Context, n id.EpochNumber, holder id.Address) (*models.Claim, error)
	RecordClaim(ctx context.Context, c *models.Claim) error
	ListClaims(ctx context.Context, holder id.Address) ([]models.Claim, error)
}

type Token interface {
	Account(ctx context.Context, holder id.Address) (*tokenmodels.Account, error)
	Holders(ctx context.Context) ([]tokenmodels.Account, error)
	Transfer(ctx context.Context, to id.Address, amount decimal.Decimal) (*tokenmodels.Transfer, error)
	CheckTransfer(ctx context.Context, from, to id.Address, amount decimal.Decimal) error
}

type Compliance interface {
	Check(ctx context.Context, holder id.Address, action compliancemodels.Action) (bool, error)
	RecordAction(ctx context.Context, holder id.Address, action compliancemodels.Action) error
}

type Guard interface {
	Check(ctx context.Context) error
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
	RequireSelfOr(ctx context.Context, subject id.Address, caps ...access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Dependencies are the modules the distributor reads and pays through.
// Treasury is the token account claims are paid from. Allocations is only
// required by the allocated_units basis policy.
type Dependencies struct {
	Token       Token
	Compliance  Compliance
	Guard       Guard
	Allocations Allocations
	Treasury    id.Address
}

func (d Dependencies) validate(policy models.BasisPolicy) error {
	switch {
	case d.Token == nil:
		return errors.New("token is required")
	case d.Compliance == nil:
		return errors.New("compliance is required")
	case d.Guard == nil:
		return errors.New("guard is required")
	case d.Treasury.IsZero():
		return errors.New("treasury address is required")
	case policy == models.BasisAllocatedUnits && d.Allocations == nil:
		return errors.New("allocated_units basis requires subscription allocations")
	}
	return nil
}

// Params bound the epoch schedule and rate.
type Params struct {
	MinRateBps     int64
	MaxRateBps     int64
	DefaultRateBps int64
	EpochDuration  time.Duration
	TriggerWindow  time.Duration
	// Genesis schedules the first keeper-opened epoch. Zero lets the keeper
	// open epoch 1 at any time.
	Genesis time.Time
	Basis   models.BasisPolicy
}

func DefaultParams() Params {
	return Params{
		MinRateBps:     10,
		MaxRateBps:     1000,
		DefaultRateBps: 800,
		EpochDuration:  30 * 24 * time.Hour,
		TriggerWindow:  6 * time.Hour,
		Basis:          models.BasisTokenHoldings,
	}
}

func (p Params) validate() error {
	switch {
	case p.MinRateBps < 0 || p.MaxRateBps > 10000 || p.MinRateBps > p.MaxRateBps:
		return errors.New("rate bounds must satisfy 0 <= min <= max <= 10000")
	case p.DefaultRateBps < p.MinRateBps || p.DefaultRateBps > p.MaxRateBps:
		return errors.New("default rate must lie within the rate bounds")
	case p.EpochDuration <= 0:
		return errors.New("epoch duration must be positive")
	case p.TriggerWindow <= 0:
		return errors.New("trigger window must be positive")
	}
	return nil
}

type Service struct {
	store  Store
	deps   Dependencies
	auth   Authorizer
	params Params
	basis  basis
	tx     tx.Runner

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner must share the runner of the token service so that marking a
// claim and paying it commit together.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithParams(p Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

func New(store Store, deps Dependencies, auth Authorizer, opts ...Option) (*Service, error) {
	s := &Service{
		store:  store,
		deps:   deps,
		auth:   auth,
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.params.Basis == "" {
		s.params.Basis = models.BasisTokenHoldings
	}
	if err := s.params.validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid yield params")
	}
	if err := deps.validate(s.params.Basis); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid yield dependencies")
	}
	s.basis = newBasis(s.params.Basis, deps)
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s, nil
}

func (s *Service) Params() Params { return s.params }

// StartEpoch finalizes the open epoch, if any, and opens the next one at
// rateBps. Requires the treasury capability.
func (s *Service) StartEpoch(ctx context.Context, rateBps int64) (*models.Epoch, error) {
	ctx, span := tracer.Start(ctx, "yield.StartEpoch", trace.WithAttributes(attribute.Int64("rate_bps", rateBps)))
	defer span.End()

	if err := s.auth.Require(ctx, access.Treasury); err != nil {
		span.RecordError(err)
		return nil, err
	}
	var next *models.Epoch
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		next, err = s.startEpoch(ctx, rateBps, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start epoch rejected")
		return nil, err
	}
	s.afterStart(ctx, next)
	return next, nil
}

// startEpoch runs inside the caller's transaction. The new epoch starts at
// start and runs for the configured duration.
func (s *Service) startEpoch(ctx context.Context, rateBps int64, start time.Time) (*models.Epoch, error) {
	if rateBps < s.params.MinRateBps || rateBps > s.params.MaxRateBps {
		return nil, dErrors.Newf(dErrors.CodeRateOutOfBounds, "rate %d bps is outside [%d, %d]",
			rateBps, s.params.MinRateBps, s.params.MaxRateBps)
	}
	now := requestcontext.Now(ctx)

	prev, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	var (
		snapshot []models.Snapshot
		supply   decimal.Decimal
	)
	if prev != nil && !prev.Finalized {
		if snapshot, supply, err = s.eligibleSnapshot(ctx, prev.Number, now); err != nil {
			return nil, err
		}
	}

	number := id.EpochNumber(1)
	if prev != nil {
		number = prev.Number + 1
	}
	next := &models.Epoch{
		Number:                 number,
		StartTime:              start,
		EndTime:                start.Add(s.params.EpochDuration),
		RateBps:                rateBps,
		EligibleSupplySnapshot: decimal.Zero,
		TotalClaimed:           decimal.Zero,
	}

	if prev != nil && !prev.Finalized {
		if err := s.store.FinalizeEpoch(ctx, prev.Number, snapshot, supply, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.Newf(dErrors.CodeConflict, "epoch=%d already finalized", prev.Number)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize epoch")
		}
		prev.Finalized = true
		prev.EligibleSupplySnapshot = supply
		s.emit(ctx, audit.EventEpochFinalized, prev.Number, "open", "finalized", supply.String())
	}
	if err := s.store.CreateEpoch(ctx, next); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "epoch=%d already exists", next.Number)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create epoch")
	}
	s.emit(ctx, audit.EventEpochStarted, next.Number, "", "open", "rate_bps="+strconv.FormatInt(rateBps, 10))
	return next, nil
}

func (s *Service) afterStart(ctx context.Context, e *models.Epoch) {
	supply := decimal.Zero
	if e.Number > 1 {
		if prev, err := s.store.FindEpoch(ctx, e.Number-1); err == nil {
			supply = prev.EligibleSupplySnapshot
		}
	}
	s.metrics.ObserveEpoch(uint64(e.Number), supply)
	s.logAudit(ctx, string(audit.EventEpochStarted),
		"epoch", uint64(e.Number),
		"rate_bps", e.RateBps,
		"end_time", e.EndTime.Format(time.RFC3339),
		"previous_eligible_supply", supply.String(),
	)
}

// eligibleSnapshot captures the basis of every holder eligible at now. The
// treasury never counts towards eligible supply.
func (s *Service) eligibleSnapshot(ctx context.Context, n id.EpochNumber, now time.Time) ([]models.Snapshot, decimal.Decimal, error) {
	accounts, err := s.deps.Token.Holders(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}
	supply := decimal.Zero
	var out []models.Snapshot
	for i := range accounts {
		acct := &accounts[i]
		if acct.Holder == s.deps.Treasury {
			continue
		}
		b, err := s.eligibleBasis(ctx, acct, now)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !b.IsPositive() {
			continue
		}
		out = append(out, models.Snapshot{Epoch: n, Holder: acct.Holder, Basis: b})
		supply = supply.Add(b)
	}
	return out, supply, nil
}

// eligibleBasis is zero for holders that are locked or not cleared to claim.
func (s *Service) eligibleBasis(ctx context.Context, acct *tokenmodels.Account, now time.Time) (decimal.Decimal, error) {
	if acct.Locked(now) {
		return decimal.Zero, nil
	}
	ok, err := s.deps.Compliance.Check(ctx, acct.Holder, compliancemodels.ActionClaim)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	return s.basis.of(ctx, acct)
}

// checkHolder fails with NotEligible when holder cannot claim at all right
// now: not compliant or still inside a transfer lock.
func (s *Service) checkHolder(ctx context.Context, holder id.Address, now time.Time) error {
	acct, err := s.deps.Token.Account(ctx, holder)
	if err != nil {
		return err
	}
	if acct.Locked(now) {
		return dErrors.Newf(dErrors.CodeNotEligible, "holder=%s is inside a transfer lock until %s",
			holder, acct.TransferLockUntil.Format(time.RFC3339))
	}
	ok, err := s.deps.Compliance.Check(ctx, holder, compliancemodels.ActionClaim)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeNotEligible, "holder=%s failed compliance for %s", holder, compliancemodels.ActionClaim)
	}
	return nil
}

// claimable resolves the payout of holder for epoch n without side effects.
func (s *Service) claimable(ctx context.Context, holder id.Address, n id.EpochNumber) (*models.Epoch, decimal.Decimal, error) {
	e, err := s.findEpoch(ctx, n)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !e.Finalized {
		return e, decimal.Zero, dErrors.Newf(dErrors.CodeEpochNotFinalized, "epoch=%d is not finalized", n)
	}
	_, err = s.store.FindClaim(ctx, n, holder)
	switch {
	case err == nil:
		return e, decimal.Zero, dErrors.Newf(dErrors.CodeAlreadyClaimed, "holder=%s epoch=%d already claimed", holder, n)
	case !errors.Is(err, sentinel.ErrNotFound):
		return e, decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read claim")
	}
	b, err := s.store.FindSnapshot(ctx, n, holder)
	if errors.Is(err, sentinel.ErrNotFound) {
		return e, decimal.Zero, dErrors.Newf(dErrors.CodeNotEligible, "holder=%s was not eligible at epoch=%d finalization", holder, n)
	}
	if err != nil {
		return e, decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read snapshot")
	}
	return e, e.Payout(b), nil
}

// checkTreasury settles every check of the payout transfer before the claim
// is recorded: treasury lock and balance, and transfer compliance.
func (s *Service) checkTreasury(ctx context.Context, holder id.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	err := s.deps.Token.CheckTransfer(ctx, s.deps.Treasury, holder, amount)
	if err == nil {
		return nil
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInsufficientBalance, dErrors.CodeLockedByCliff:
		acct, aerr := s.deps.Token.Account(ctx, s.deps.Treasury)
		if aerr != nil {
			return aerr
		}
		return dErrors.Newf(dErrors.CodeInsufficientTreasuryFunds, "treasury=%s holds %s, payout needs %s",
			s.deps.Treasury, acct.Balance, amount)
	}
	return err
}

// pay moves amount from the treasury to holder. It runs after the claims are
// recorded.
func (s *Service) pay(ctx context.Context, holder id.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	_, err := s.deps.Token.Transfer(requestcontext.WithActor(ctx, s.deps.Treasury), holder, amount)
	return err
}

// Claim pays holder's yield for one finalized epoch. A zero payout is
// recorded as a claim and succeeds without a transfer.
func (s *Service) Claim(ctx context.Context, holder id.Address, n id.EpochNumber) (*models.Claim, error) {
	ctx, span := tracer.Start(ctx, "yield.Claim",
		trace.WithAttributes(
			attribute.String("holder", holder.String()),
			attribute.Int64("epoch", int64(n)),
		))
	defer span.End()

	c, err := s.claim(ctx, holder, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim rejected")
		s.rejected(ctx, "claim", holder, err)
		return nil, err
	}
	s.afterClaim(ctx, holder, c.Amount, n)
	return c, nil
}

func (s *Service) claim(ctx context.Context, holder id.Address, n id.EpochNumber) (*models.Claim, error) {
	if err := s.auth.RequireSelfOr(ctx, holder, access.Operator); err != nil {
		return nil, err
	}
	if err := s.deps.Guard.Check(ctx); err != nil {
		return nil, err
	}
	var c *models.Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		if err := s.checkHolder(ctx, holder, now); err != nil {
			return err
		}
		_, amount, err := s.claimable(ctx, holder, n)
		if err != nil {
			return err
		}
		if err := s.checkTreasury(ctx, holder, amount); err != nil {
			return err
		}

		c = &models.Claim{Epoch: n, Holder: holder, Amount: amount, ClaimedAt: now}
		if err := s.record(ctx, c); err != nil {
			return err
		}
		return s.pay(ctx, holder, amount)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) record(ctx context.Context, c *models.Claim) error {
	if err := s.store.RecordClaim(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeAlreadyClaimed, "holder=%s epoch=%d already claimed", c.Holder, c.Epoch)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record claim")
	}
	s.emit(ctx, audit.EventYieldClaimed, c.Epoch, "", c.Holder.String(), c.Amount.String())
	return nil
}

// ClaimMultiple claims every listed epoch it can and pays the sum in one
// transfer. Unknown, unfinalized, already claimed and not-snapshotted epochs
// are skipped. Holder-level failures (guard, eligibility, treasury) fail the
// whole call.
func (s *Service) ClaimMultiple(ctx context.Context, holder id.Address, epochs []id.EpochNumber) (*models.MultiClaim, error) {
	ctx, span := tracer.Start(ctx, "yield.ClaimMultiple",
		trace.WithAttributes(
			attribute.String("holder", holder.String()),
			attribute.Int("epochs", len(epochs)),
		))
	defer span.End()

	out, err := s.claimMultiple(ctx, holder, epochs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim rejected")
		s.rejected(ctx, "claim_multiple", holder, err)
		return nil, err
	}
	for _, c := range out.Claims {
		s.afterClaim(ctx, holder, c.Amount, c.Epoch)
	}
	return out, nil
}

func (s *Service) claimMultiple(ctx context.Context, holder id.Address, epochs []id.EpochNumber) (*models.MultiClaim, error) {
	if err := s.auth.RequireSelfOr(ctx, holder, access.Operator); err != nil {
		return nil, err
	}
	if len(epochs) == 0 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "holder=%s no epochs to claim", holder)
	}
	if err := s.deps.Guard.Check(ctx); err != nil {
		return nil, err
	}
	out := &models.MultiClaim{Holder: holder, Total: decimal.Zero}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		if err := s.checkHolder(ctx, holder, now); err != nil {
			return err
		}
		seen := make(map[id.EpochNumber]bool, len(epochs))
		for _, n := range epochs {
			if seen[n] {
				continue
			}
			seen[n] = true
			_, amount, err := s.claimable(ctx, holder, n)
			if err != nil {
				code := dErrors.CodeOf(err)
				switch code {
				case dErrors.CodeNotFound, dErrors.CodeEpochNotFinalized, dErrors.CodeAlreadyClaimed, dErrors.CodeNotEligible:
					out.Skipped = append(out.Skipped, models.Skipped{Epoch: n, Reason: code})
					continue
				}
				return err
			}
			out.Claims = append(out.Claims, models.Claim{Epoch: n, Holder: holder, Amount: amount, ClaimedAt: now})
			out.Total = out.Total.Add(amount)
		}
		if err := s.checkTreasury(ctx, holder, out.Total); err != nil {
			return err
		}
		for i := range out.Claims {
			if err := s.record(ctx, &out.Claims[i]); err != nil {
				return err
			}
		}
		return s.pay(ctx, holder, out.Total)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) afterClaim(ctx context.Context, holder id.Address, amount decimal.Decimal, n id.EpochNumber) {
	if err := s.deps.Compliance.RecordAction(ctx, holder, compliancemodels.ActionClaim); err != nil {
		s.cooldownMiss(ctx, holder, err)
	}
	s.metrics.ObserveClaim("ok", amount)
	s.logAudit(ctx, string(audit.EventYieldClaimed),
		"holder", holder.String(),
		"epoch", uint64(n),
		"amount", amount.String(),
	)
}

// GetClaimableAmount is what Claim would pay right now, or zero when the
// claim would fail or was already made.
func (s *Service) GetClaimableAmount(ctx context.Context, holder id.Address, n id.EpochNumber) (decimal.Decimal, error) {
	_, amount, err := s.claimable(ctx, holder, n)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeEpochNotFinalized, dErrors.CodeAlreadyClaimed, dErrors.CodeNotEligible:
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return amount, nil
}

// CheckUpkeep reports whether the keeper may open the next epoch now: only
// within [scheduled, scheduled + trigger window], where scheduled is the end
// of the latest epoch.
func (s *Service) CheckUpkeep(ctx context.Context) (*models.UpkeepStatus, error) {
	latest, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.upkeepStatus(latest, requestcontext.Now(ctx)), nil
}

func (s *Service) upkeepStatus(latest *models.Epoch, now time.Time) *models.UpkeepStatus {
	st := &models.UpkeepStatus{}
	switch {
	case latest != nil:
		st.CurrentEpoch = latest.Number
		st.ScheduledAt = latest.EndTime
	case s.params.Genesis.IsZero():
		st.Needed = true
		st.ScheduledAt = now
		st.WindowEnd = now.Add(s.params.TriggerWindow)
		return st
	default:
		st.ScheduledAt = s.params.Genesis
	}
	st.WindowEnd = st.ScheduledAt.Add(s.params.TriggerWindow)
	st.Needed = !now.Before(st.ScheduledAt) && !now.After(st.WindowEnd)
	return st
}

// PerformUpkeep opens the next epoch at the rate of the current one when the
// trigger window is open and fails with UpkeepNotNeeded otherwise. The new
// epoch starts at the scheduled time rather than the call time.
func (s *Service) PerformUpkeep(ctx context.Context) (*models.Epoch, error) {
	ctx, span := tracer.Start(ctx, "yield.PerformUpkeep")
	defer span.End()

	if err := s.auth.Require(ctx, access.Keeper); err != nil {
		span.RecordError(err)
		return nil, err
	}
	var next *models.Epoch
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		latest, err := s.latest(ctx)
		if err != nil {
			return err
		}
		st := s.upkeepStatus(latest, requestcontext.Now(ctx))
		if !st.Needed {
			return dErrors.Newf(dErrors.CodeUpkeepNotNeeded, "epoch=%d next upkeep window is [%s, %s]",
				st.CurrentEpoch, st.ScheduledAt.Format(time.RFC3339), st.WindowEnd.Format(time.RFC3339))
		}
		rate := s.params.DefaultRateBps
		if latest != nil {
			rate = latest.RateBps
		}
		next, err = s.startEpoch(ctx, rate, st.ScheduledAt)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upkeep rejected")
		s.metrics.ObserveUpkeep(string(dErrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.ObserveUpkeep("ok")
	s.afterStart(ctx, next)
	s.logAudit(ctx, string(audit.EventUpkeepPerformed), "epoch", uint64(next.Number))
	return next, nil
}

func (s *Service) GetEpoch(ctx context.Context, n id.EpochNumber) (*models.Epoch, error) {
	return s.findEpoch(ctx, n)
}

// CurrentEpoch returns the latest epoch or NotFound before the first one.
func (s *Service) CurrentEpoch(ctx context.Context) (*models.Epoch, error) {
	e, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no yield epoch has started")
	}
	return e, nil
}

func (s *Service) ListEpochs(ctx context.Context) ([]models.Epoch, error) {
	epochs, err := s.store.ListEpochs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list epochs")
	}
	return epochs, nil
}

func (s *Service) ListClaims(ctx context.Context, holder id.Address) ([]models.Claim, error) {
	claims, err := s.store.ListClaims(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

func (s *Service) latest(ctx context.Context) (*models.Epoch, error) {
	e, err := s.store.LatestEpoch(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest epoch")
	}
	return e, nil
}

func (s *Service) findEpoch(ctx context.Context, n id.EpochNumber) (*models.Epoch, error) {
	e, err := s.store.FindEpoch(ctx, n)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "epoch=%d not found", n)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load epoch")
	}
	return e, nil
}

func (s *Service) rejected(ctx context.Context, op string, holder id.Address, err error) {
	code := string(dErrors.CodeOf(err))
	s.metrics.ObserveClaim(code, decimal.Zero)
	if s.logger != nil {
		s.logger.WarnContext(ctx, op+" rejected",
			"holder", holder.String(),
			"code", code,
			"error", err,
		)
	}
}

// cooldownMiss reports a paid claim whose CLAIM cooldown was not started.
func (s *Service) cooldownMiss(ctx context.Context, holder id.Address, err error) {
	s.metrics.IncCooldownMiss()
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to record compliance action",
			"holder", holder.String(),
			"action", string(compliancemodels.ActionClaim),
			"error", err,
		)
	}
	if s.auditPublisher == nil {
		return
	}
	if aerr := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(audit.EventActionNotRecorded),
		Entity:   "holder",
		EntityID: holder.String(),
		After:    string(compliancemodels.ActionClaim),
		Reason:   err.Error(),
	}); aerr != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(audit.EventActionNotRecorded), "error", aerr)
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, n id.EpochNumber, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "yield_epoch",
		EntityID: n.String(),
		Before:   before,
		After:    after,
		Reason:   reason,
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes,
		"event", event,
		"log_type", "audit",
		"actor", requestcontext.Actor(ctx).String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logger.InfoContext(ctx, event, args...)
}
