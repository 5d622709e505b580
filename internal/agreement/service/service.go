// Package service anchors signed subscription documents by content hash.
// A hash can be recorded once; revocation is terminal and does not free it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"aurum/internal/access"
	"aurum/internal/agreement/metrics"
	"aurum/internal/agreement/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

type Store interface {
	Find(ctx context.Context, hash id.Hash) (*models.Record, error)
	Create(ctx context.Context, record *models.Record) error
	MarkRevoked(ctx context.Context, hash id.Hash, reason string) error
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
	RequireSelfOr(ctx context.Context, subject id.Address, caps ...access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store Store
	auth  Authorizer
	tx    tx.Runner

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

func New(store Store, auth Authorizer, opts ...Option) *Service {
	s := &Service{store: store, auth: auth}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s
}

// Record anchors a document signed by signer. The caller must be the signer
// or an operator; the caller is stored as the notary.
func (s *Service) Record(ctx context.Context, signer id.Address, hash id.Hash, locator, docType string) (*models.Record, error) {
	locator, docType, err := s.validate(ctx, signer, hash, locator, docType)
	if err != nil {
		return nil, err
	}

	var record *models.Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.Find(ctx, hash)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read agreement")
		}
		if existing != nil {
			return alreadyExists(existing)
		}
		record = &models.Record{
			DocumentHash: hash,
			Locator:      locator,
			DocType:      docType,
			RecordedAt:   requestcontext.Now(ctx),
			Signer:       signer,
			Notary:       requestcontext.Actor(ctx),
		}
		if err := s.store.Create(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeAlreadyExists, "document=%s already recorded", hash)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record agreement")
		}
		s.emit(ctx, audit.EventAgreementRecorded, hash, "", locator, docType)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRecorded(docType)
	s.logAudit(ctx, string(audit.EventAgreementRecorded),
		"document_hash", hash.String(),
		"doc_type", docType,
		"signer", signer.String(),
	)
	return record, nil
}

// Validate runs the checks Record makes before writing, so a caller can
// settle them ahead of its own first write.
func (s *Service) Validate(ctx context.Context, signer id.Address, hash id.Hash, locator, docType string) error {
	_, _, err := s.validate(ctx, signer, hash, locator, docType)
	return err
}

func (s *Service) validate(ctx context.Context, signer id.Address, hash id.Hash, locator, docType string) (string, string, error) {
	if err := s.auth.RequireSelfOr(ctx, signer, access.Operator); err != nil {
		return "", "", err
	}
	locator = strings.TrimSpace(locator)
	docType = strings.TrimSpace(docType)
	switch {
	case hash.IsZero():
		return "", "", dErrors.New(dErrors.CodeValidation, "document hash is required")
	case locator == "":
		return "", "", dErrors.Newf(dErrors.CodeValidation, "document=%s locator is required", hash)
	case len(locator) > models.MaxLocatorLength:
		return "", "", dErrors.Newf(dErrors.CodeValidation, "document=%s locator is too long", hash)
	case docType == "":
		return "", "", dErrors.Newf(dErrors.CodeValidation, "document=%s doc type is required", hash)
	}
	return locator, docType, nil
}

func alreadyExists(existing *models.Record) error {
	base := dErrors.Newf(dErrors.CodeAlreadyExists, "document=%s already recorded", existing.DocumentHash)
	if existing.Revoked {
		return dErrors.Wrap(base, dErrors.CodeDocumentRevoked, "document="+existing.DocumentHash.String()+" was revoked")
	}
	return base
}

// Exists reports whether hash was ever recorded, revoked or not.
func (s *Service) Exists(ctx context.Context, hash id.Hash) (bool, error) {
	_, err := s.store.Find(ctx, hash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read agreement")
	}
	return true, nil
}

// Verify reports whether hash is recorded, not revoked, and stored under
// exactly locator.
func (s *Service) Verify(ctx context.Context, hash id.Hash, locator string) (bool, error) {
	record, err := s.store.Find(ctx, hash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read agreement")
	}
	return record.Matches(locator), nil
}

func (s *Service) Get(ctx context.Context, hash id.Hash) (*models.Record, error) {
	record, err := s.store.Find(ctx, hash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "document=%s not recorded", hash)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read agreement")
	}
	return record, nil
}

// Revoke marks a record revoked. Admin only; a revoked record cannot be
// revoked again.
func (s *Service) Revoke(ctx context.Context, hash id.Hash, reason string) (*models.Record, error) {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required")
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.Get(ctx, hash)
		if err != nil {
			return err
		}
		if record.Revoked {
			return dErrors.Newf(dErrors.CodeDocumentRevoked, "document=%s already revoked", hash)
		}
		if err := s.store.MarkRevoked(ctx, hash, reason); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke agreement")
		}
		record.Revoked = true
		record.RevokedReason = reason
		s.emit(ctx, audit.EventAgreementRevoked, hash, "recorded", "revoked", reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRevoked()
	s.logAudit(ctx, string(audit.EventAgreementRevoked), "document_hash", hash.String(), "reason", reason)
	return record, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, hash id.Hash, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "document",
		EntityID: hash.String(),
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
