// Package service implements the subscription ledger: compliance-gated
// subscriptions funded from deposit credit, held behind a cliff, and matured
// into gold token issuance once the cliff has passed and coverage is healthy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aurum/internal/access"
	agreementmodels "aurum/internal/agreement/models"
	compliancemodels "aurum/internal/compliance/models"
	depositmodels "aurum/internal/deposit/models"
	"aurum/internal/subscription/metrics"
	"aurum/internal/subscription/models"
	tokenmodels "aurum/internal/token/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

var tracer = otel.Tracer("aurum/internal/subscription")

// DefaultDocType is recorded in the agreement ledger when the intent names none.
const DefaultDocType = "subscription_agreement"

type Store interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Find(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error)
	DocumentUsed(ctx context.Context, hash id.Hash) (bool, error)
	MarkMatured(ctx context.Context, subID id.SubscriptionID, at time.Time) error
	ListByHolder(ctx context.Context, holder id.Address) ([]models.Subscription, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error)
	AllocatedUnits(ctx context.Context) (decimal.Decimal, error)
	HolderDepositUSD(ctx context.Context, holder id.Address) (decimal.Decimal, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type Compliance interface {
	Check(ctx context.Context, holder id.Address, action compliancemodels.Action) (bool, error)
	RecordAction(ctx context.Context, holder id.Address, action compliancemodels.Action) error
	CheckAdmission(ctx context.Context, holder id.Address, priorUSD, amountUSD decimal.Decimal) error
	AdmitParticipant(ctx context.Context, holder id.Address, priorUSD, amountUSD decimal.Decimal) error
}

type Credits interface {
	Credit(ctx context.Context, holder id.Address) (*depositmodels.Credit, error)
	Debit(ctx context.Context, holder id.Address, amount decimal.Decimal) error
}

type Agreements interface {
	Exists(ctx context.Context, hash id.Hash) (bool, error)
	Validate(ctx context.Context, signer id.Address, hash id.Hash, locator, docType string) error
	Record(ctx context.Context, signer id.Address, hash id.Hash, locator, docType string) (*agreementmodels.Record, error)
}

type Token interface {
	MintAuthority() id.Address
	Mint(ctx context.Context, to id.Address, amount decimal.Decimal) (*tokenmodels.Account, error)
	SetLock(ctx context.Context, holder id.Address, until time.Time) (*tokenmodels.Account, error)
}

// Guard is the circuit breaker: CheckPaused covers the manual pause only,
// Check adds coverage health.
type Guard interface {
	CheckPaused(ctx context.Context) error
	Check(ctx context.Context) error
}

type Authorizer interface {
	RequireSelfOr(ctx context.Context, subject id.Address, caps ...access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Dependencies are the ledger modules a subscription touches.
type Dependencies struct {
	Compliance Compliance
	Credits    Credits
	Agreements Agreements
	Token      Token
	Guard      Guard
}

func (d Dependencies) validate() error {
	switch {
	case d.Compliance == nil:
		return errors.New("compliance is required")
	case d.Credits == nil:
		return errors.New("credits are required")
	case d.Agreements == nil:
		return errors.New("agreements are required")
	case d.Token == nil:
		return errors.New("token is required")
	case d.Guard == nil:
		return errors.New("guard is required")
	}
	return nil
}

// Params are the program constants of the placement.
type Params struct {
	EntryPriceUSD        decimal.Decimal
	MinEntryUSD          decimal.Decimal
	ProgramCapUnits      decimal.Decimal
	CliffDuration        time.Duration
	ExtendedHoldDuration time.Duration
}

func DefaultParams() Params {
	return Params{
		EntryPriceUSD:        decimal.New(20000, 18),
		MinEntryUSD:          decimal.New(20000, 18),
		ProgramCapUnits:      decimal.NewFromInt(50000),
		CliffDuration:        150 * 24 * time.Hour,
		ExtendedHoldDuration: 1825 * 24 * time.Hour,
	}
}

func (p Params) validate() error {
	switch {
	case !p.EntryPriceUSD.IsPositive():
		return errors.New("entry price must be positive")
	case p.MinEntryUSD.IsNegative():
		return errors.New("minimum entry cannot be negative")
	case !p.ProgramCapUnits.IsPositive():
		return errors.New("program cap must be positive")
	case p.CliffDuration < 0 || p.ExtendedHoldDuration < 0:
		return errors.New("durations cannot be negative")
	}
	return nil
}

type Service struct {
	store  Store
	deps   Dependencies
	auth   Authorizer
	params Params
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

// WithTxRunner sets the transaction boundary. It must be the runner shared
// with the deposit, agreement, compliance and token services so that a
// subscription and a maturation commit as one unit.
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
	if err := deps.validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid subscription dependencies")
	}
	s := &Service{
		store:  store,
		deps:   deps,
		auth:   auth,
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.validate(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid subscription params")
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s, nil
}

func (s *Service) Params() Params { return s.params }

// Subscribe converts deposit credit into a subscription held behind the
// cliff. Agreement record, participant admission, credit debit and the
// subscription itself commit together.
func (s *Service) Subscribe(ctx context.Context, in models.Intent) (*models.Subscription, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "subscription.Subscribe",
		trace.WithAttributes(
			attribute.String("holder", in.Holder.String()),
			attribute.String("lock_mode", string(in.LockMode)),
		))
	defer span.End()

	sub, err := s.subscribe(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe rejected")
		s.rejected(ctx, "subscribe", in.Holder, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("subscription_id", sub.ID.String()))

	s.recordAction(ctx, sub.Holder, compliancemodels.ActionSubscribe)
	if allocated, err := s.store.AllocatedUnits(ctx); err == nil {
		s.metrics.ObserveCreated(string(sub.LockMode), allocated, time.Since(started).Seconds())
	}
	s.logAudit(ctx, string(audit.EventSubscriptionCreated),
		"subscription_id", sub.ID.String(),
		"holder", sub.Holder.String(),
		"units", sub.UnitsAllocated.String(),
		"lock_mode", string(sub.LockMode),
		"cliff_end_time", sub.CliffEndTime.Format(time.RFC3339),
	)
	return sub, nil
}

func (s *Service) subscribe(ctx context.Context, in models.Intent) (*models.Subscription, error) {
	in, err := normalizeIntent(in)
	if err != nil {
		return nil, err
	}
	if err := s.auth.RequireSelfOr(ctx, in.Holder, access.Operator); err != nil {
		return nil, err
	}
	if err := s.deps.Guard.CheckPaused(ctx); err != nil {
		return nil, err
	}

	var sub *models.Subscription
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		units, prior, err := s.checkSubscribe(ctx, in)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		sub = &models.Subscription{
			ID:               id.NewSubscriptionID(),
			Holder:           in.Holder,
			DepositUSD:       in.USDAmount,
			EntryPriceUSD:    s.params.EntryPriceUSD,
			UnitsAllocated:   units,
			LockMode:         in.LockMode,
			CliffEndTime:     now.Add(s.params.CliffDuration),
			DocumentHash:     in.DocumentHash,
			SubscriptionTime: now,
		}
		if in.LockMode == models.LockExtendedHold {
			sub.ExtendedHoldEndTime = now.Add(s.params.ExtendedHoldDuration)
		}

		if _, err := s.deps.Agreements.Record(ctx, in.Holder, in.DocumentHash, in.DocumentLocator, in.DocType); err != nil {
			if dErrors.HasCode(err, dErrors.CodeAlreadyExists) {
				return dErrors.Newf(dErrors.CodeDocumentReplay, "holder=%s document=%s already used", in.Holder, in.DocumentHash)
			}
			return err
		}
		if err := s.deps.Compliance.AdmitParticipant(ctx, in.Holder, prior, in.USDAmount); err != nil {
			return err
		}
		if err := s.deps.Credits.Debit(ctx, in.Holder, in.USDAmount); err != nil {
			return err
		}
		if err := s.store.Create(ctx, sub); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeDocumentReplay, "holder=%s document=%s already used", in.Holder, in.DocumentHash)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save subscription")
		}
		s.emit(ctx, audit.EventSubscriptionCreated, sub, "", string(models.StateCreated), sub.UnitsAllocated.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// checkSubscribe runs every fallible precondition before the first write and
// returns the allocation and the holder's prior commitment.
func (s *Service) checkSubscribe(ctx context.Context, in models.Intent) (decimal.Decimal, decimal.Decimal, error) {
	zero := decimal.Zero
	ok, err := s.deps.Compliance.Check(ctx, in.Holder, compliancemodels.ActionSubscribe)
	if err != nil {
		return zero, zero, err
	}
	if !ok {
		return zero, zero, dErrors.Newf(dErrors.CodeNotCompliant, "holder=%s failed compliance for %s", in.Holder, compliancemodels.ActionSubscribe)
	}

	if in.USDAmount.LessThan(s.params.MinEntryUSD) {
		return zero, zero, dErrors.Newf(dErrors.CodeBelowMinimum, "holder=%s amount %s is below minimum entry %s",
			in.Holder, in.USDAmount, s.params.MinEntryUSD)
	}
	units := id.FloorDiv(in.USDAmount, s.params.EntryPriceUSD)
	if !units.IsPositive() {
		return zero, zero, dErrors.Newf(dErrors.CodeBelowMinimum, "holder=%s amount %s buys no units at %s",
			in.Holder, in.USDAmount, s.params.EntryPriceUSD)
	}

	credit, err := s.deps.Credits.Credit(ctx, in.Holder)
	if err != nil {
		return zero, zero, err
	}
	if credit.AmountUSD.LessThan(in.USDAmount) {
		return zero, zero, dErrors.Newf(dErrors.CodeInsufficientCredit, "holder=%s credit %s is below %s",
			in.Holder, credit.AmountUSD, in.USDAmount)
	}

	allocated, err := s.store.AllocatedUnits(ctx)
	if err != nil {
		return zero, zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allocated units")
	}
	if allocated.Add(units).GreaterThan(s.params.ProgramCapUnits) {
		return zero, zero, dErrors.Newf(dErrors.CodeCapacityExceeded, "holder=%s allocation %s exceeds program cap (%s of %s allocated)",
			in.Holder, units, allocated, s.params.ProgramCapUnits)
	}

	used, err := s.store.DocumentUsed(ctx, in.DocumentHash)
	if err != nil {
		return zero, zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check document hash")
	}
	if !used {
		if used, err = s.deps.Agreements.Exists(ctx, in.DocumentHash); err != nil {
			return zero, zero, err
		}
	}
	if used {
		return zero, zero, dErrors.Newf(dErrors.CodeDocumentReplay, "holder=%s document=%s already used", in.Holder, in.DocumentHash)
	}
	if err := s.deps.Agreements.Validate(ctx, in.Holder, in.DocumentHash, in.DocumentLocator, in.DocType); err != nil {
		return zero, zero, err
	}

	prior, err := s.store.HolderDepositUSD(ctx, in.Holder)
	if err != nil {
		return zero, zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read prior subscriptions")
	}
	if err := s.deps.Compliance.CheckAdmission(ctx, in.Holder, prior, in.USDAmount); err != nil {
		return zero, zero, err
	}
	return units, prior, nil
}

func normalizeIntent(in models.Intent) (models.Intent, error) {
	in.DocumentLocator = strings.TrimSpace(in.DocumentLocator)
	in.DocType = strings.TrimSpace(in.DocType)
	if in.DocType == "" {
		in.DocType = DefaultDocType
	}
	if in.LockMode == "" {
		in.LockMode = models.LockStandard
	}
	switch {
	case in.Holder.IsZero():
		return in, dErrors.New(dErrors.CodeValidation, "holder is required")
	case !in.USDAmount.IsPositive():
		return in, dErrors.Newf(dErrors.CodeValidation, "holder=%s amount must be positive", in.Holder)
	case in.LockMode != models.LockStandard && in.LockMode != models.LockExtendedHold:
		return in, dErrors.Newf(dErrors.CodeValidation, "holder=%s unknown lock mode %q", in.Holder, in.LockMode)
	case in.DocumentHash.IsZero():
		return in, dErrors.Newf(dErrors.CodeValidation, "holder=%s document hash is required", in.Holder)
	case in.DocumentLocator == "":
		return in, dErrors.Newf(dErrors.CodeValidation, "holder=%s document locator is required", in.Holder)
	}
	return in, nil
}

// Mature issues the allocated units of a subscription whose cliff has ended.
// The caller must be the holder, an operator or the keeper. It succeeds at
// most once per subscription.
func (s *Service) Mature(ctx context.Context, holder id.Address, subID id.SubscriptionID) (*models.Subscription, error) {
	ctx, span := tracer.Start(ctx, "subscription.Mature",
		trace.WithAttributes(
			attribute.String("holder", holder.String()),
			attribute.String("subscription_id", subID.String()),
		))
	defer span.End()

	sub, err := s.mature(ctx, holder, subID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mature rejected")
		s.rejected(ctx, "mature", holder, err)
		return nil, err
	}

	s.recordAction(ctx, holder, compliancemodels.ActionMature)
	s.metrics.IncMatured()
	s.logAudit(ctx, string(audit.EventSubscriptionMatured),
		"subscription_id", sub.ID.String(),
		"holder", holder.String(),
		"units", sub.UnitsAllocated.String(),
		"lock_mode", string(sub.LockMode),
	)
	return sub, nil
}

func (s *Service) mature(ctx context.Context, holder id.Address, subID id.SubscriptionID) (*models.Subscription, error) {
	if err := s.auth.RequireSelfOr(ctx, holder, access.Operator, access.Keeper); err != nil {
		return nil, err
	}

	var sub *models.Subscription
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.find(ctx, subID)
		if err != nil {
			return err
		}
		if sub.Holder != holder {
			return dErrors.Newf(dErrors.CodeNotFound, "holder=%s subscription=%s not found", holder, subID)
		}
		if sub.Matured {
			return dErrors.Newf(dErrors.CodeAlreadyMatured, "subscription=%s already matured", subID)
		}
		now := requestcontext.Now(ctx)
		if now.Before(sub.CliffEndTime) {
			return dErrors.Newf(dErrors.CodeCliffNotEnded, "subscription=%s cliff ends %s",
				subID, sub.CliffEndTime.Format(time.RFC3339))
		}
		if err := s.deps.Guard.Check(ctx); err != nil {
			return err
		}
		ok, err := s.deps.Compliance.Check(ctx, holder, compliancemodels.ActionMature)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.Newf(dErrors.CodeNotCompliant, "holder=%s subscription=%s failed compliance for %s",
				holder, subID, compliancemodels.ActionMature)
		}

		ledger := requestcontext.WithActor(ctx, s.deps.Token.MintAuthority())
		if _, err := s.deps.Token.Mint(ledger, holder, sub.UnitsAllocated); err != nil {
			return err
		}
		if sub.LockMode == models.LockExtendedHold && sub.ExtendedHoldEndTime.After(now) {
			if _, err := s.deps.Token.SetLock(ledger, holder, sub.ExtendedHoldEndTime); err != nil {
				return err
			}
		}
		if err := s.store.MarkMatured(ctx, subID, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeAlreadyMatured, "subscription=%s already matured", subID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark subscription matured")
		}
		sub.Matured = true
		sub.MaturedAt = now
		s.emit(ctx, audit.EventSubscriptionMatured, sub, string(models.StateMaturable), string(models.StateMatured), sub.UnitsAllocated.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// MatureBatch matures each entry independently. A failing entry is reported
// in its outcome and does not stop the rest.
func (s *Service) MatureBatch(ctx context.Context, refs []models.MaturationRef) []models.MaturationOutcome {
	out := make([]models.MaturationOutcome, 0, len(refs))
	for _, ref := range refs {
		outcome := models.MaturationOutcome{Holder: ref.Holder, ID: ref.ID, UnitsMinted: decimal.Zero}
		sub, err := s.Mature(ctx, ref.Holder, ref.ID)
		if err != nil {
			outcome.Error = string(dErrors.CodeOf(err))
			outcome.ErrorMessage = err.Error()
		} else {
			outcome.Matured = true
			outcome.UnitsMinted = sub.UnitsAllocated
		}
		out = append(out, outcome)
	}
	return out
}

// DueForMaturation lists unmatured subscriptions whose cliff has ended.
func (s *Service) DueForMaturation(ctx context.Context, limit int) ([]models.Subscription, error) {
	due, err := s.store.ListDue(ctx, requestcontext.Now(ctx), limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due subscriptions")
	}
	return due, nil
}

// MatureDue runs a batch over everything due, up to limit entries.
func (s *Service) MatureDue(ctx context.Context, limit int) ([]models.MaturationOutcome, error) {
	due, err := s.DueForMaturation(ctx, limit)
	if err != nil {
		return nil, err
	}
	refs := make([]models.MaturationRef, 0, len(due))
	for _, sub := range due {
		refs = append(refs, models.MaturationRef{Holder: sub.Holder, ID: sub.ID})
	}
	return s.MatureBatch(ctx, refs), nil
}

func (s *Service) Get(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	return s.find(ctx, subID)
}

func (s *Service) find(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	sub, err := s.store.Find(ctx, subID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "subscription=%s not found", subID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subscription")
	}
	return sub, nil
}

func (s *Service) ListByHolder(ctx context.Context, holder id.Address) ([]models.Subscription, error) {
	subs, err := s.store.ListByHolder(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list subscriptions")
	}
	return subs, nil
}

func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read subscription stats")
	}
	st.ProgramCap = s.params.ProgramCapUnits
	return st, nil
}

// recordAction starts the holder's cooldown for action. The action already
// committed, so a failure is reported rather than returned.
func (s *Service) recordAction(ctx context.Context, holder id.Address, action compliancemodels.Action) {
	err := s.deps.Compliance.RecordAction(ctx, holder, action)
	if err == nil {
		return
	}
	s.metrics.IncCooldownMiss(string(action))
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to record compliance action",
			"holder", holder.String(),
			"action", string(action),
			"error", err,
		)
	}
	if s.auditPublisher != nil {
		if aerr := s.auditPublisher.Emit(ctx, audit.Event{
			Action:   string(audit.EventActionNotRecorded),
			Entity:   "holder",
			EntityID: holder.String(),
			After:    string(action),
			Reason:   err.Error(),
		}); aerr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(audit.EventActionNotRecorded), "error", aerr)
		}
	}
}

func (s *Service) rejected(ctx context.Context, op string, holder id.Address, err error) {
	code := string(dErrors.CodeOf(err))
	s.metrics.IncRejected(op, code)
	if s.logger != nil {
		s.logger.WarnContext(ctx, fmt.Sprintf("%s rejected", op),
			"holder", holder.String(),
			"code", code,
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, sub *models.Subscription, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "subscription",
		EntityID: sub.ID.String(),
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
