// Package service implements the identity registry: issuance, validity,
// revocation and the provider and jurisdiction allow-lists.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"aurum/internal/access"
	"aurum/internal/identity/metrics"
	"aurum/internal/identity/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

// Store persists identity records, the session replay set and the allow-lists.
type Store interface {
	FindByHolder(ctx context.Context, holder id.Address) (*models.Record, error)
	// Save inserts or replaces the holder's record.
	Save(ctx context.Context, record *models.Record) error
	SessionUsed(ctx context.Context, sessionID string) (bool, error)
	// MarkSessionUsed returns sentinel.ErrAlreadyUsed if the session is known.
	MarkSessionUsed(ctx context.Context, sessionID string, holder id.Address, at time.Time) error
	IsApproved(ctx context.Context, kind models.AllowKind, value string) (bool, error)
	Approve(ctx context.Context, kind models.AllowKind, value string) error
	Remove(ctx context.Context, kind models.AllowKind, value string) error
	ListApproved(ctx context.Context, kind models.AllowKind) ([]string, error)
	Stats(ctx context.Context) (models.Stats, error)
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const defaultValidity = 365 * 24 * time.Hour

// Service is the identity registry.
type Service struct {
	store           Store
	auth            Authorizer
	tx              tx.Runner
	defaultValidity time.Duration
	logger          *slog.Logger
	auditPublisher  AuditPublisher
	metrics         *metrics.Metrics
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

// WithTxRunner shares the ledger transaction boundary with other modules.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithDefaultValidity(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultValidity = d
		}
	}
}

func New(store Store, auth Authorizer, opts ...Option) *Service {
	s := &Service{
		store:           store,
		auth:            auth,
		defaultValidity: defaultValidity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s
}

// Issue creates a holder's credential. Checks run in order: duplicate active
// record, session replay, jurisdiction allow-list, provider allow-list.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (*models.Record, error) {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return nil, err
	}
	req.KYCProvider = strings.TrimSpace(req.KYCProvider)
	req.KYCSessionID = strings.TrimSpace(req.KYCSessionID)
	if err := validateIssue(req); err != nil {
		return nil, err
	}
	validity := req.Validity
	if validity == 0 {
		validity = s.defaultValidity
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindByHolder(ctx, req.Holder)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
		}
		if existing != nil && existing.Active() {
			return dErrors.Newf(dErrors.CodeDuplicateIdentity, "holder=%s already has an active identity", req.Holder)
		}
		used, err := s.store.SessionUsed(ctx, req.KYCSessionID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check kyc session")
		}
		if used {
			return dErrors.Newf(dErrors.CodeSessionReplay, "holder=%s kyc session already used", req.Holder)
		}
		if ok, err := s.store.IsApproved(ctx, models.AllowJurisdiction, req.Jurisdiction.String()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check jurisdiction")
		} else if !ok {
			return dErrors.Newf(dErrors.CodeJurisdictionNotApproved, "holder=%s jurisdiction %s not approved", req.Holder, req.Jurisdiction)
		}
		if ok, err := s.store.IsApproved(ctx, models.AllowProvider, req.KYCProvider); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check provider")
		} else if !ok {
			return dErrors.Newf(dErrors.CodeProviderNotApproved, "holder=%s provider %s not approved", req.Holder, req.KYCProvider)
		}

		now := requestcontext.Now(ctx)
		record = &models.Record{
			Holder:        req.Holder,
			KYCProvider:   req.KYCProvider,
			KYCSessionID:  req.KYCSessionID,
			KYCLevel:      req.KYCLevel,
			Accreditation: req.Accreditation,
			Jurisdiction:  req.Jurisdiction,
			IssuedAt:      now,
			ExpiresAt:     now.Add(validity),
		}
		if err := s.store.MarkSessionUsed(ctx, req.KYCSessionID, req.Holder, now); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Newf(dErrors.CodeSessionReplay, "holder=%s kyc session already used", req.Holder)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record kyc session")
		}
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save identity")
		}
		s.emit(ctx, audit.EventIdentityIssued, record.Holder, "", record.KYCLevel.String(), "")
		return nil
	})
	if err != nil {
		s.metrics.IncRejected(string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncIssued(record.KYCLevel.String(), record.Accreditation.String())
	s.logAudit(ctx, string(audit.EventIdentityIssued),
		"holder", record.Holder.String(),
		"provider", record.KYCProvider,
		"level", record.KYCLevel.String(),
		"accreditation", record.Accreditation.String(),
		"jurisdiction", record.Jurisdiction.String(),
		"expires_at", record.ExpiresAt,
	)
	return record, nil
}

func validateIssue(req models.IssueRequest) error {
	if _, err := id.ParseAddress(req.Holder.String()); err != nil {
		return err
	}
	if req.KYCProvider == "" {
		return dErrors.New(dErrors.CodeValidation, "kyc provider is required")
	}
	if req.KYCSessionID == "" {
		return dErrors.New(dErrors.CodeValidation, "kyc session id is required")
	}
	if len(req.KYCSessionID) > 128 {
		return dErrors.New(dErrors.CodeValidation, "kyc session id must be at most 128 characters")
	}
	if req.KYCLevel < models.KYCNone || req.KYCLevel > models.KYCInstitutional {
		return dErrors.New(dErrors.CodeValidation, "kyc level out of range")
	}
	if req.Accreditation < models.AccreditationNone || req.Accreditation > models.EligibleCounterparty {
		return dErrors.New(dErrors.CodeValidation, "accreditation out of range")
	}
	if _, err := id.ParseJurisdiction(req.Jurisdiction.String()); err != nil {
		return err
	}
	if req.Validity < 0 {
		return dErrors.New(dErrors.CodeValidation, "validity cannot be negative")
	}
	return nil
}

// Get returns the holder's record, revoked or not.
func (s *Service) Get(ctx context.Context, holder id.Address) (*models.Record, error) {
	record, err := s.store.FindByHolder(ctx, holder)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "holder=%s has no identity", holder)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return record, nil
}

// IsValid reports whether the holder has a non-revoked, unexpired credential.
func (s *Service) IsValid(ctx context.Context, holder id.Address) (bool, error) {
	record, err := s.Get(ctx, holder)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.IsValid(requestcontext.Now(ctx)), nil
}

// Revoke terminally revokes the holder's credential. Revoking an already
// revoked credential succeeds without side effects.
func (s *Service) Revoke(ctx context.Context, holder id.Address, reason string) (*models.Record, error) {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "revocation reason is required")
	}

	var (
		record  *models.Record
		changed bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.Get(ctx, holder)
		if err != nil {
			return err
		}
		record = r
		if r.Revoked {
			return nil
		}
		r.Revoked = true
		r.RevokedReason = reason
		if err := s.store.Save(ctx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke identity")
		}
		changed = true
		s.emit(ctx, audit.EventIdentityRevoked, holder, "valid", "revoked", reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncRevoked()
		s.logAudit(ctx, string(audit.EventIdentityRevoked), "holder", holder.String(), "reason", reason)
	}
	return record, nil
}

// ExtendValidity pushes the expiry out by extra.
func (s *Service) ExtendValidity(ctx context.Context, holder id.Address, extra time.Duration) (*models.Record, error) {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return nil, err
	}
	if extra <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "extension must be positive")
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.Get(ctx, holder)
		if err != nil {
			return err
		}
		if r.Revoked {
			return dErrors.Newf(dErrors.CodeIdentityRevoked, "holder=%s identity is revoked", holder)
		}
		before := r.ExpiresAt
		r.ExpiresAt = r.ExpiresAt.Add(extra)
		if err := s.store.Save(ctx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend identity")
		}
		s.emit(ctx, audit.EventIdentityExtended, holder, before.Format(time.RFC3339), r.ExpiresAt.Format(time.RFC3339), "")
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventIdentityExtended), "holder", holder.String(), "expires_at", record.ExpiresAt)
	return record, nil
}

// UpdateLevel upgrades or downgrades the KYC level and accreditation.
func (s *Service) UpdateLevel(ctx context.Context, holder id.Address, level models.KYCLevel, accreditation models.Accreditation) (*models.Record, error) {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return nil, err
	}
	if level < models.KYCNone || level > models.KYCInstitutional {
		return nil, dErrors.New(dErrors.CodeValidation, "kyc level out of range")
	}
	if accreditation < models.AccreditationNone || accreditation > models.EligibleCounterparty {
		return nil, dErrors.New(dErrors.CodeValidation, "accreditation out of range")
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		r, err := s.Get(ctx, holder)
		if err != nil {
			return err
		}
		if r.Revoked {
			return dErrors.Newf(dErrors.CodeIdentityRevoked, "holder=%s identity is revoked", holder)
		}
		before := r.KYCLevel.String() + "/" + r.Accreditation.String()
		r.KYCLevel = level
		r.Accreditation = accreditation
		if err := s.store.Save(ctx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
		}
		s.emit(ctx, audit.EventIdentityLevelUpdated, holder, before, level.String()+"/"+accreditation.String(), "")
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventIdentityLevelUpdated),
		"holder", holder.String(),
		"level", level.String(),
		"accreditation", accreditation.String(),
	)
	return record, nil
}

func (s *Service) ApproveProvider(ctx context.Context, provider string) error {
	return s.setAllowed(ctx, models.AllowProvider, strings.TrimSpace(provider), true)
}

func (s *Service) RemoveProvider(ctx context.Context, provider string) error {
	return s.setAllowed(ctx, models.AllowProvider, strings.TrimSpace(provider), false)
}

func (s *Service) ApproveJurisdiction(ctx context.Context, code id.Jurisdiction) error {
	return s.setAllowed(ctx, models.AllowJurisdiction, code.String(), true)
}

func (s *Service) RemoveJurisdiction(ctx context.Context, code id.Jurisdiction) error {
	return s.setAllowed(ctx, models.AllowJurisdiction, code.String(), false)
}

// allowEvents maps each allow-list to its {approved, removed} events.
var allowEvents = map[models.AllowKind][2]audit.AuditEvent{
	models.AllowProvider:     {audit.EventProviderApproved, audit.EventProviderRemoved},
	models.AllowJurisdiction: {audit.EventJurisdictionApproved, audit.EventJurisdictionRemoved},
}

func (s *Service) setAllowed(ctx context.Context, kind models.AllowKind, value string, approve bool) error {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return err
	}
	if value == "" {
		return dErrors.Newf(dErrors.CodeValidation, "%s is required", kind)
	}
	if kind == models.AllowJurisdiction {
		if _, err := id.ParseJurisdiction(value); err != nil {
			return err
		}
	}

	event := allowEvents[kind][0]
	if !approve {
		event = allowEvents[kind][1]
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if approve {
			err = s.store.Approve(ctx, kind, value)
		} else {
			err = s.store.Remove(ctx, kind, value)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update allow-list")
		}
		s.emitEntity(ctx, event, string(kind), value, "")
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, string(event), string(kind), value)
	return nil
}

// Seed approves the configured providers and jurisdictions without a
// capability check. It is only called at startup.
func (s *Service) Seed(ctx context.Context, providers []string, jurisdictions []id.Jurisdiction) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, p := range providers {
			p = strings.TrimSpace(p)
			if p == "" {
				return dErrors.New(dErrors.CodeValidation, "provider is required")
			}
			if err := s.store.Approve(ctx, models.AllowProvider, p); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed provider")
			}
		}
		for _, code := range jurisdictions {
			if _, err := id.ParseJurisdiction(code.String()); err != nil {
				return err
			}
			if err := s.store.Approve(ctx, models.AllowJurisdiction, code.String()); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed jurisdiction")
			}
		}
		return nil
	})
}

// Allowed lists the approved providers or jurisdictions.
func (s *Service) Allowed(ctx context.Context, kind models.AllowKind) ([]string, error) {
	values, err := s.store.ListApproved(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list allow-list")
	}
	return values, nil
}

func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute identity stats")
	}
	return stats, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, holder id.Address, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "holder",
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
