// Package service implements the gold token ledger. Only the mint authority
// (the subscription ledger principal) can create units or lock accounts;
// holders move units with transfers subject to their post-maturation lock.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	compliancemodels "aurum/internal/compliance/models"
	"aurum/internal/token/metrics"
	"aurum/internal/token/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

type Store interface {
	FindAccount(ctx context.Context, holder id.Address) (*models.Account, error)
	SaveAccount(ctx context.Context, a *models.Account) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	TotalSupply(ctx context.Context) (decimal.Decimal, error)
	FindAllowance(ctx context.Context, owner, spender id.Address) (decimal.Decimal, error)
	SaveAllowance(ctx context.Context, owner, spender id.Address, amount decimal.Decimal) error
}

// ComplianceChecker gates transfers when transfer compliance is enabled.
type ComplianceChecker interface {
	Check(ctx context.Context, holder id.Address, action compliancemodels.Action) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store         Store
	mintAuthority id.Address
	compliance    ComplianceChecker
	exempt        []id.Address
	tx            tx.Runner

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

// WithTransferCompliance checks both parties of every transfer against the
// TRANSFER action. Exempt principals (treasury, mint authority) skip the check.
func WithTransferCompliance(checker ComplianceChecker, exempt ...id.Address) Option {
	return func(s *Service) {
		s.compliance = checker
		s.exempt = exempt
	}
}

func New(store Store, mintAuthority id.Address, opts ...Option) *Service {
	s := &Service{
		store:         store,
		mintAuthority: mintAuthority,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s
}

func (s *Service) MintAuthority() id.Address { return s.mintAuthority }

func (s *Service) requireMintAuthority(ctx context.Context) error {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() || actor != s.mintAuthority {
		return dErrors.Newf(dErrors.CodeUnauthorized, "actor=%s is not the mint authority", actor)
	}
	return nil
}

// Mint credits amount new units to holder.
func (s *Service) Mint(ctx context.Context, to id.Address, amount decimal.Decimal) (*models.Account, error) {
	if err := s.requireMintAuthority(ctx); err != nil {
		return nil, err
	}
	if to.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "mint recipient is required")
	}
	if !amount.IsPositive() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "holder=%s mint amount must be positive", to)
	}

	var (
		account *models.Account
		supply  decimal.Decimal
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.account(ctx, to)
		if err != nil {
			return err
		}
		before := account.Balance
		account.Balance = account.Balance.Add(amount)
		if err := s.store.SaveAccount(ctx, account); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token account")
		}
		if supply, err = s.store.TotalSupply(ctx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read total supply")
		}
		s.emit(ctx, audit.EventTokenMinted, to, before.String(), account.Balance.String(), "")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMint(amount, supply)
	s.logAudit(ctx, string(audit.EventTokenMinted),
		"holder", to.String(),
		"amount", amount.String(),
		"balance", account.Balance.String(),
	)
	return account, nil
}

// Transfer moves amount from the caller to to.
func (s *Service) Transfer(ctx context.Context, to id.Address, amount decimal.Decimal) (*models.Transfer, error) {
	from := requestcontext.Actor(ctx)
	if from.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	var out *models.Transfer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.transfer(ctx, from, to, amount)
		return err
	})
	s.afterTransfer(ctx, out, err)
	return out, err
}

// TransferFrom moves amount from from to to on the caller's allowance.
func (s *Service) TransferFrom(ctx context.Context, from, to id.Address, amount decimal.Decimal) (*models.Transfer, error) {
	spender := requestcontext.Actor(ctx)
	if spender.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	var out *models.Transfer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		allowance, err := s.store.FindAllowance(ctx, from, spender)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allowance")
		}
		if allowance.LessThan(amount) {
			return dErrors.Newf(dErrors.CodeInsufficientBalance,
				"holder=%s allowance %s for spender=%s is below %s", from, allowance, spender, amount)
		}
		if out, err = s.transfer(ctx, from, to, amount); err != nil {
			return err
		}
		if err := s.store.SaveAllowance(ctx, from, spender, allowance.Sub(amount)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save allowance")
		}
		return nil
	})
	s.afterTransfer(ctx, out, err)
	return out, err
}

// CheckTransfer reports the error a transfer of amount from from to to would
// fail with right now, without moving anything.
func (s *Service) CheckTransfer(ctx context.Context, from, to id.Address, amount decimal.Decimal) error {
	_, err := s.checkTransfer(ctx, from, to, amount)
	return err
}

func (s *Service) checkTransfer(ctx context.Context, from, to id.Address, amount decimal.Decimal) (*models.Account, error) {
	if to.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "transfer recipient is required")
	}
	if !amount.IsPositive() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "holder=%s transfer amount must be positive", from)
	}
	src, err := s.account(ctx, from)
	if err != nil {
		return nil, err
	}
	if src.Locked(requestcontext.Now(ctx)) {
		return nil, dErrors.Newf(dErrors.CodeLockedByCliff,
			"holder=%s transfers locked until %s", from, src.TransferLockUntil.Format(time.RFC3339))
	}
	if err := s.checkCompliance(ctx, from, to); err != nil {
		return nil, err
	}
	if src.Balance.LessThan(amount) {
		return nil, dErrors.Newf(dErrors.CodeInsufficientBalance, "holder=%s balance %s is below %s", from, src.Balance, amount)
	}
	return src, nil
}

// transfer runs every check before touching either account.
func (s *Service) transfer(ctx context.Context, from, to id.Address, amount decimal.Decimal) (*models.Transfer, error) {
	src, err := s.checkTransfer(ctx, from, to, amount)
	if err != nil {
		return nil, err
	}
	if from == to {
		return &models.Transfer{From: from, To: to, Amount: amount}, nil
	}
	dst, err := s.account(ctx, to)
	if err != nil {
		return nil, err
	}

	src.Balance = src.Balance.Sub(amount)
	dst.Balance = dst.Balance.Add(amount)
	if err := s.store.SaveAccount(ctx, src); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token account")
	}
	if err := s.store.SaveAccount(ctx, dst); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token account")
	}
	s.emit(ctx, audit.EventTokenTransferred, from, "", to.String(), amount.String())
	return &models.Transfer{From: from, To: to, Amount: amount}, nil
}

func (s *Service) checkCompliance(ctx context.Context, parties ...id.Address) error {
	if s.compliance == nil {
		return nil
	}
	for _, holder := range parties {
		if slices.Contains(s.exempt, holder) {
			continue
		}
		ok, err := s.compliance.Check(ctx, holder, compliancemodels.ActionTransfer)
		if err != nil {
			return err
		}
		if !ok {
			return dErrors.Newf(dErrors.CodeNotCompliant, "holder=%s is not cleared for %s", holder, compliancemodels.ActionTransfer)
		}
	}
	return nil
}

func (s *Service) afterTransfer(ctx context.Context, t *models.Transfer, err error) {
	if err != nil {
		s.metrics.ObserveTransfer(string(dErrors.CodeOf(err)))
		return
	}
	s.metrics.ObserveTransfer("ok")
	s.logAudit(ctx, string(audit.EventTokenTransferred),
		"from", t.From.String(),
		"to", t.To.String(),
		"amount", t.Amount.String(),
	)
}

// Approve sets the caller's allowance for spender. Zero revokes it.
func (s *Service) Approve(ctx context.Context, spender id.Address, amount decimal.Decimal) error {
	owner := requestcontext.Actor(ctx)
	if owner.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if spender.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "spender is required")
	}
	if amount.IsNegative() {
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s allowance cannot be negative", owner)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		before, err := s.store.FindAllowance(ctx, owner, spender)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allowance")
		}
		if err := s.store.SaveAllowance(ctx, owner, spender, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save allowance")
		}
		s.emit(ctx, audit.EventTokenApproved, owner, before.String(), amount.String(), spender.String())
		return nil
	})
}

func (s *Service) Allowance(ctx context.Context, owner, spender id.Address) (decimal.Decimal, error) {
	amount, err := s.store.FindAllowance(ctx, owner, spender)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allowance")
	}
	return amount, nil
}

// SetLock blocks outgoing transfers of holder until until. An existing
// longer lock is kept.
func (s *Service) SetLock(ctx context.Context, holder id.Address, until time.Time) (*models.Account, error) {
	if err := s.requireMintAuthority(ctx); err != nil {
		return nil, err
	}
	if holder.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "holder is required")
	}
	var (
		account  *models.Account
		extended bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if account, err = s.account(ctx, holder); err != nil {
			return err
		}
		if !until.After(account.TransferLockUntil) {
			return nil
		}
		before := account.TransferLockUntil
		account.TransferLockUntil = until.UTC()
		if err := s.store.SaveAccount(ctx, account); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token account")
		}
		s.emit(ctx, audit.EventLockSet, holder, formatLock(before), formatLock(account.TransferLockUntil), "")
		extended = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if extended {
		s.metrics.IncLock()
		s.logAudit(ctx, string(audit.EventLockSet),
			"holder", holder.String(),
			"until", account.TransferLockUntil,
		)
	}
	return account, nil
}

// ClearLock removes any transfer lock of holder.
func (s *Service) ClearLock(ctx context.Context, holder id.Address) (*models.Account, error) {
	if err := s.requireMintAuthority(ctx); err != nil {
		return nil, err
	}
	var account *models.Account
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if account, err = s.account(ctx, holder); err != nil {
			return err
		}
		if account.TransferLockUntil.IsZero() {
			return nil
		}
		before := account.TransferLockUntil
		account.TransferLockUntil = time.Time{}
		if err := s.store.SaveAccount(ctx, account); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token account")
		}
		s.emit(ctx, audit.EventLockCleared, holder, formatLock(before), "", "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventLockCleared), "holder", holder.String())
	return account, nil
}

func formatLock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Account returns holder's account; holders that never held tokens get an
// empty account.
func (s *Service) Account(ctx context.Context, holder id.Address) (*models.Account, error) {
	return s.account(ctx, holder)
}

func (s *Service) account(ctx context.Context, holder id.Address) (*models.Account, error) {
	a, err := s.store.FindAccount(ctx, holder)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.EmptyAccount(holder), nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token account")
	}
	return a, nil
}

func (s *Service) BalanceOf(ctx context.Context, holder id.Address) (decimal.Decimal, error) {
	a, err := s.account(ctx, holder)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

func (s *Service) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.store.TotalSupply(ctx)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read total supply")
	}
	return total, nil
}

// Holders lists accounts with a positive balance ordered by holder.
func (s *Service) Holders(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holders")
	}
	return accounts, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, holder id.Address, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "token_account",
		EntityID: holder.String(),
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
