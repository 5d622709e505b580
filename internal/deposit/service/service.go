// Package service implements the deposit normalization router: operator
// signed proofs of cross-chain deposits become spendable USD credit exactly
// once, and credit leaves the ledger through withdrawals or subscriptions.
package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aurum/internal/access"
	"aurum/internal/deposit/metrics"
	"aurum/internal/deposit/models"
	"aurum/internal/deposit/proof"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

var tracer = otel.Tracer("aurum/internal/deposit")

type Store interface {
	FindCredit(ctx context.Context, holder id.Address) (*models.Credit, error)
	SaveCredit(ctx context.Context, holder id.Address, amount decimal.Decimal, at time.Time) error
	AddProvenance(ctx context.Context, holder id.Address, chain string, usd decimal.Decimal) error
	IsProcessed(ctx context.Context, hash id.Hash) (bool, error)
	MarkProcessed(ctx context.Context, p models.ProcessedProof) error
	FindOperator(ctx context.Context, addr id.Address) (*models.Operator, error)
	SaveOperator(ctx context.Context, op models.Operator) error
	DeleteOperator(ctx context.Context, addr id.Address) error
	ListOperators(ctx context.Context) ([]models.Operator, error)
	FindToken(ctx context.Context, chain, token string) (*models.TokenConfig, error)
	SaveToken(ctx context.Context, cfg models.TokenConfig) error
	ListTokens(ctx context.Context) ([]models.TokenConfig, error)
}

// PriceConverter quotes non-stable deposit assets. Implementations return
// models.ErrStalePrice when the quote cannot be trusted.
type PriceConverter interface {
	Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Disburser pays withdrawn credit out to the holder in targetToken.
type Disburser interface {
	Disburse(ctx context.Context, holder id.Address, amount decimal.Decimal, targetToken string) error
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
	RequireSelfOr(ctx context.Context, subject id.Address, caps ...access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// USD is the unit every deposit is normalized to.
const USD = "USD"

const (
	defaultMaxProofAge = 24 * time.Hour
	defaultFutureSkew  = 5 * time.Minute
)

type Service struct {
	store     Store
	auth      Authorizer
	prices    PriceConverter
	disburser Disburser
	tx        tx.Runner

	maxProofAge time.Duration
	futureSkew  time.Duration
	feeBps      int64

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

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithPriceConverter(c PriceConverter) Option {
	return func(s *Service) {
		s.prices = c
	}
}

func WithDisburser(d Disburser) Option {
	return func(s *Service) {
		s.disburser = d
	}
}

func WithMaxProofAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxProofAge = d
		}
	}
}

func WithFutureSkew(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.futureSkew = d
		}
	}
}

func WithFeeBps(bps int64) Option {
	return func(s *Service) {
		s.feeBps = bps
	}
}

func New(store Store, auth Authorizer, opts ...Option) (*Service, error) {
	s := &Service{
		store:       store,
		auth:        auth,
		maxProofAge: defaultMaxProofAge,
		futureSkew:  defaultFutureSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.feeBps < 0 || s.feeBps > id.BasisPoints {
		return nil, dErrors.Newf(dErrors.CodeValidation, "fee_bps=%d must be within [0, %d]", s.feeBps, id.BasisPoints)
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s, nil
}

// SubmitProof credits a bridge deposit proof. A proof hash is credited at
// most once; every replay fails with CodeReplayedProof.
func (s *Service) SubmitProof(ctx context.Context, p *models.Proof) (*models.Receipt, error) {
	if p == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "proof is required")
	}
	ctx, span := tracer.Start(ctx, "deposit.SubmitProof",
		trace.WithAttributes(
			attribute.String("holder", p.Holder.String()),
			attribute.String("chain", p.SourceChain),
			attribute.String("token", p.SourceToken),
		))
	defer span.End()

	receipt, err := s.submitProof(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "proof rejected")
		s.rejected(ctx, p, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("proof_hash", receipt.ProofHash.String()))
	return receipt, nil
}

func (s *Service) submitProof(ctx context.Context, p *models.Proof) (*models.Receipt, error) {
	if err := validateProof(p); err != nil {
		return nil, err
	}
	chain, token := models.TokenKey(p.SourceChain, p.SourceToken)
	hash, err := proof.Hash(p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash proof")
	}
	now := requestcontext.Now(ctx)

	if err := s.checkReplay(ctx, hash); err != nil {
		return nil, err
	}
	if now.Sub(p.Timestamp) > s.maxProofAge {
		return nil, dErrors.Newf(dErrors.CodeProofExpired, "proof=%s is older than %s", hash, s.maxProofAge)
	}
	if p.Timestamp.Sub(now) > s.futureSkew {
		return nil, dErrors.Newf(dErrors.CodeValidation, "proof=%s timestamp is in the future", hash)
	}
	signer, err := proof.Verify(p.OperatorSignature, hash, s.operatorKey(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUntrustedSigner, fmt.Sprintf("proof=%s signer is not a bridge operator", hash))
	}
	cfg, err := s.store.FindToken(ctx, chain, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "token %s on chain %s is not accepted", token, chain)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token config")
	}
	if p.SourceAmount.LessThan(cfg.Min) {
		return nil, dErrors.Newf(dErrors.CodeBelowMinimum, "proof=%s amount %s below minimum %s", hash, p.SourceAmount, cfg.Min)
	}
	if !cfg.Max.IsZero() && p.SourceAmount.GreaterThan(cfg.Max) {
		return nil, dErrors.Newf(dErrors.CodeAboveMaximum, "proof=%s amount %s above maximum %s", hash, p.SourceAmount, cfg.Max)
	}
	gross, err := s.usdValue(ctx, cfg, p)
	if err != nil {
		return nil, err
	}
	fee := id.ApplyBps(gross, s.feeBps)
	credited := gross.Sub(fee)

	receipt := &models.Receipt{
		ProofHash:   hash,
		Holder:      p.Holder,
		Signer:      signer,
		GrossUSD:    gross,
		FeeUSD:      fee,
		CreditedUSD: credited,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkReplay(ctx, hash); err != nil {
			return err
		}
		balance, err := s.balance(ctx, p.Holder)
		if err != nil {
			return err
		}
		err = s.store.MarkProcessed(ctx, models.ProcessedProof{
			Hash:        hash,
			Holder:      p.Holder,
			CreditedUSD: credited,
			ProcessedAt: now,
		})
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeReplayedProof, "proof=%s already processed", hash)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark proof processed")
		}
		receipt.Balance = balance.Add(credited)
		if err := s.store.SaveCredit(ctx, p.Holder, receipt.Balance, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save credit")
		}
		if err := s.store.AddProvenance(ctx, p.Holder, chain, gross); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record provenance")
		}
		s.emit(ctx, audit.EventDepositCredited, p.Holder, balance.String(), receipt.Balance.String(), hash.String())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCredit(chain, credited)
	s.logAudit(ctx, string(audit.EventDepositCredited),
		"holder", p.Holder.String(),
		"proof_hash", hash.String(),
		"signer", signer.String(),
		"chain", chain,
		"gross_usd", gross.String(),
		"fee_usd", fee.String(),
		"credited_usd", credited.String(),
	)
	return receipt, nil
}

func validateProof(p *models.Proof) error {
	switch {
	case p.Holder.IsZero():
		return dErrors.New(dErrors.CodeValidation, "holder is required")
	case p.SourceChain == "" || p.SourceToken == "":
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s source chain and token are required", p.Holder)
	case p.SourceTxHash == "":
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s source tx hash is required", p.Holder)
	case !p.SourceAmount.IsPositive():
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s source amount must be positive", p.Holder)
	case p.USDAmount.IsNegative():
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s usd amount cannot be negative", p.Holder)
	case p.Timestamp.IsZero():
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s proof timestamp is required", p.Holder)
	case p.OperatorSignature == "":
		return dErrors.Newf(dErrors.CodeUntrustedSigner, "holder=%s proof is not signed", p.Holder)
	}
	return nil
}

func (s *Service) checkReplay(ctx context.Context, hash id.Hash) error {
	processed, err := s.store.IsProcessed(ctx, hash)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check replay set")
	}
	if processed {
		return dErrors.Newf(dErrors.CodeReplayedProof, "proof=%s already processed", hash)
	}
	return nil
}

func (s *Service) operatorKey(ctx context.Context) proof.KeyLookup {
	return func(addr id.Address) (ed25519.PublicKey, error) {
		op, err := s.store.FindOperator(ctx, addr)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errors.New("operator " + addr.String() + " is not trusted")
		}
		if err != nil {
			return nil, err
		}
		return op.PublicKey, nil
	}
}

// usdValue returns the gross USD value of a proof. Stable tokens use the
// attested amount; everything else is quoted by the price feed.
func (s *Service) usdValue(ctx context.Context, cfg *models.TokenConfig, p *models.Proof) (decimal.Decimal, error) {
	if cfg.Stable {
		if !p.USDAmount.IsPositive() {
			return decimal.Zero, dErrors.Newf(dErrors.CodeValidation, "holder=%s usd amount must be positive", p.Holder)
		}
		return p.USDAmount, nil
	}
	if s.prices == nil {
		return decimal.Zero, dErrors.Newf(dErrors.CodeValidation, "token %s has no price feed", cfg.Token)
	}
	usd, err := s.prices.Convert(ctx, cfg.Token, USD, p.SourceAmount)
	if errors.Is(err, models.ErrStalePrice) {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeStalePrice, fmt.Sprintf("price of %s is stale", cfg.Token))
	}
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to convert %s", cfg.Token))
	}
	if !usd.IsPositive() {
		return decimal.Zero, dErrors.Newf(dErrors.CodeValidation, "price feed valued %s at zero", cfg.Token)
	}
	return usd.Truncate(0), nil
}

func (s *Service) rejected(ctx context.Context, p *models.Proof, err error) {
	code := string(dErrors.CodeOf(err))
	s.metrics.IncRejected(code)
	s.emit(ctx, audit.EventProofRejected, p.Holder, "", "", code)
	if s.logger != nil {
		s.logger.WarnContext(ctx, "deposit proof rejected",
			"event", string(audit.EventProofRejected),
			"holder", p.Holder.String(),
			"chain", p.SourceChain,
			"code", code,
			"error", err,
		)
	}
}

// WithdrawCredit debits the holder and pays the amount out. The debit is
// committed before the disbursement; a failed disbursement re-credits the
// holder and returns the disbursement error.
func (s *Service) WithdrawCredit(ctx context.Context, holder id.Address, amount decimal.Decimal, targetToken string) (*models.Credit, error) {
	if err := s.auth.RequireSelfOr(ctx, holder, access.Treasury); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "holder=%s withdrawal amount must be positive", holder)
	}
	if targetToken == "" {
		return nil, dErrors.Newf(dErrors.CodeValidation, "holder=%s target token is required", holder)
	}
	if s.disburser == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "no disburser configured")
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.debit(ctx, holder, amount, audit.EventCreditWithdrawn, targetToken)
	}); err != nil {
		return nil, err
	}

	if err := s.disburser.Disburse(ctx, holder, amount, targetToken); err != nil {
		if rerr := s.reverse(ctx, holder, amount, err); rerr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to re-credit after disbursement failure",
				"holder", holder.String(),
				"amount", amount.String(),
				"error", rerr,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("holder=%s disbursement failed", holder))
	}

	s.metrics.IncWithdrawn()
	s.logAudit(ctx, string(audit.EventCreditWithdrawn),
		"holder", holder.String(),
		"amount", amount.String(),
		"target_token", targetToken,
	)
	return s.Credit(ctx, holder)
}

func (s *Service) reverse(ctx context.Context, holder id.Address, amount decimal.Decimal, cause error) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		balance, err := s.balance(ctx, holder)
		if err != nil {
			return err
		}
		after := balance.Add(amount)
		if err := s.store.SaveCredit(ctx, holder, after, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-credit holder")
		}
		s.emit(ctx, audit.EventWithdrawalReversed, holder, balance.String(), after.String(), cause.Error())
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.IncReversed()
	return nil
}

// Debit removes amount from the holder's credit. Callers run it inside their
// own transaction so the debit commits together with what it pays for.
func (s *Service) Debit(ctx context.Context, holder id.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s debit amount must be positive", holder)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.debit(ctx, holder, amount, audit.EventCreditDebited, "")
	})
}

func (s *Service) debit(ctx context.Context, holder id.Address, amount decimal.Decimal, event audit.AuditEvent, reason string) error {
	balance, err := s.balance(ctx, holder)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return dErrors.Newf(dErrors.CodeInsufficientCredit, "holder=%s credit %s is below %s", holder, balance, amount)
	}
	after := balance.Sub(amount)
	if err := s.store.SaveCredit(ctx, holder, after, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit credit")
	}
	s.emit(ctx, event, holder, balance.String(), after.String(), reason)
	return nil
}

func (s *Service) balance(ctx context.Context, holder id.Address) (decimal.Decimal, error) {
	c, err := s.store.FindCredit(ctx, holder)
	if errors.Is(err, sentinel.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit")
	}
	return c.AmountUSD, nil
}

// Credit returns the holder's credit. Holders that never deposited have an
// empty credit.
func (s *Service) Credit(ctx context.Context, holder id.Address) (*models.Credit, error) {
	c, err := s.store.FindCredit(ctx, holder)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.EmptyCredit(holder), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credit")
	}
	return c, nil
}

// IsProcessed reports whether a proof hash has been credited.
func (s *Service) IsProcessed(ctx context.Context, hash id.Hash) (bool, error) {
	processed, err := s.store.IsProcessed(ctx, hash)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check replay set")
	}
	return processed, nil
}

func (s *Service) AddOperator(ctx context.Context, op models.Operator) error {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return err
	}
	if err := validateOperator(op); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SaveOperator(ctx, op); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save operator")
		}
		s.emitEntity(ctx, audit.EventOperatorAdded, "operator", op.Address.String(), "")
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, string(audit.EventOperatorAdded), "operator", op.Address.String())
	return nil
}

func (s *Service) RemoveOperator(ctx context.Context, addr id.Address) error {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		err := s.store.DeleteOperator(ctx, addr)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "operator=%s not found", addr)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove operator")
		}
		s.emitEntity(ctx, audit.EventOperatorRemoved, "operator", addr.String(), "")
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, string(audit.EventOperatorRemoved), "operator", addr.String())
	return nil
}

func (s *Service) ListOperators(ctx context.Context) ([]models.Operator, error) {
	ops, err := s.store.ListOperators(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list operators")
	}
	return ops, nil
}

// ConfigureToken sets the accepted source amount bounds of a token.
func (s *Service) ConfigureToken(ctx context.Context, cfg models.TokenConfig) (*models.TokenConfig, error) {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return nil, err
	}
	cfg, err := normalizeToken(cfg)
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SaveToken(ctx, cfg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token config")
		}
		s.emitEntity(ctx, audit.EventTokenConfigured, "deposit_token", cfg.Chain+"/"+cfg.Token, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventTokenConfigured),
		"chain", cfg.Chain,
		"token", cfg.Token,
		"min", cfg.Min.String(),
		"max", cfg.Max.String(),
		"stable", cfg.Stable,
	)
	return &cfg, nil
}

func (s *Service) ListTokens(ctx context.Context) ([]models.TokenConfig, error) {
	tokens, err := s.store.ListTokens(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tokens")
	}
	return tokens, nil
}

// Seed installs configured operators and token bounds without a capability
// check.
func (s *Service) Seed(ctx context.Context, operators []models.Operator, tokens []models.TokenConfig) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, op := range operators {
			if err := validateOperator(op); err != nil {
				return err
			}
			if err := s.store.SaveOperator(ctx, op); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed operator")
			}
		}
		for _, cfg := range tokens {
			cfg, err := normalizeToken(cfg)
			if err != nil {
				return err
			}
			if err := s.store.SaveToken(ctx, cfg); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed token config")
			}
		}
		return nil
	})
}

func validateOperator(op models.Operator) error {
	if op.Address.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "operator address is required")
	}
	if len(op.PublicKey) != ed25519.PublicKeySize {
		return dErrors.Newf(dErrors.CodeValidation, "operator=%s public key must be %d bytes", op.Address, ed25519.PublicKeySize)
	}
	return nil
}

func normalizeToken(cfg models.TokenConfig) (models.TokenConfig, error) {
	cfg.Chain, cfg.Token = models.TokenKey(cfg.Chain, cfg.Token)
	if cfg.Chain == "" || cfg.Token == "" {
		return cfg, dErrors.New(dErrors.CodeValidation, "chain and token are required")
	}
	if cfg.Min.IsNegative() || cfg.Max.IsNegative() {
		return cfg, dErrors.Newf(dErrors.CodeValidation, "token %s bounds cannot be negative", cfg.Token)
	}
	if !cfg.Max.IsZero() && cfg.Max.LessThan(cfg.Min) {
		return cfg, dErrors.Newf(dErrors.CodeValidation, "token %s max is below min", cfg.Token)
	}
	return cfg, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, holder id.Address, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "credit",
		EntityID: holder.String(),
		Before:   before,
		After:    after,
		Reason:   reason,
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) emitEntity(ctx context.Context, event audit.AuditEvent, entity, entityID, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   entity,
		EntityID: entityID,
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
