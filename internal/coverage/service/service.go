// Package service implements the reserve coverage oracle: attestation
// sources report reserve and issued quantities, and every accepted report
// re-derives a single weighted coverage ratio the ledger gates on.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aurum/internal/access"
	"aurum/internal/coverage/metrics"
	"aurum/internal/coverage/models"
	"aurum/internal/platform/flags"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

var tracer = otel.Tracer("aurum/internal/coverage")

type Store interface {
	FindSource(ctx context.Context, sourceID id.SourceID) (*models.Source, error)
	SaveSource(ctx context.Context, src *models.Source) error
	ListSources(ctx context.Context) ([]models.Source, error)
	LatestReport(ctx context.Context, sourceID id.SourceID) (*models.Report, error)
	AppendReport(ctx context.Context, r *models.Report) error
	LatestAggregate(ctx context.Context) (*models.Aggregate, error)
	AppendAggregate(ctx context.Context, a *models.Aggregate) error
	UpsertDaily(ctx context.Context, snap *models.DailySnapshot) error
	ListDaily(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error)
}

// FlagStore holds the emergency halt switch.
type FlagStore interface {
	Get(ctx context.Context, name string) (flags.Flag, error)
	Set(ctx context.Context, f flags.Flag) error
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Params are the oracle's program parameters.
type Params struct {
	MaxAge          time.Duration
	MinSources      int
	MaxDeviationBps uint64
	FloorBps        uint64
}

func DefaultParams() Params {
	return Params{
		MaxAge:          24 * time.Hour,
		MinSources:      2,
		MaxDeviationBps: 500,
		FloorBps:        id.BasisPoints,
	}
}

type Service struct {
	store  Store
	flags  FlagStore
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

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// WithParams overrides the defaults; zero fields keep their default.
func WithParams(p Params) Option {
	return func(s *Service) {
		if p.MaxAge > 0 {
			s.params.MaxAge = p.MaxAge
		}
		if p.MinSources > 0 {
			s.params.MinSources = p.MinSources
		}
		if p.MaxDeviationBps > 0 {
			s.params.MaxDeviationBps = p.MaxDeviationBps
		}
		if p.FloorBps > 0 {
			s.params.FloorBps = p.FloorBps
		}
	}
}

func New(store Store, flagStore FlagStore, auth Authorizer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		flags:  flagStore,
		auth:   auth,
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s
}

func (s *Service) Params() Params { return s.params }

// RegisterSource adds a source or replaces its reporter and weight. New
// sources start active.
func (s *Service) RegisterSource(ctx context.Context, sourceID id.SourceID, reporter id.Address, weightBps uint64) (*models.Source, error) {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return nil, err
	}
	if err := validateSource(sourceID, reporter, weightBps); err != nil {
		return nil, err
	}

	src := &models.Source{ID: sourceID, Reporter: reporter, WeightBps: weightBps, Active: true}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.findSource(ctx, sourceID)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if existing != nil {
			src.Active = existing.Active
		}
		if err := s.store.SaveSource(ctx, src); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save source")
		}
		s.emit(ctx, audit.EventSourceRegistered, sourceID, "", sourceSummary(src), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventSourceRegistered),
		"source", sourceID.String(),
		"reporter", reporter.String(),
		"weight_bps", weightBps,
	)
	return src, nil
}

// Seed installs configured sources without a capability check. Existing
// sources keep their active flag.
func (s *Service) Seed(ctx context.Context, sources []models.Source) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for i := range sources {
			src := sources[i]
			if err := validateSource(src.ID, src.Reporter, src.WeightBps); err != nil {
				return err
			}
			existing, err := s.findSource(ctx, src.ID)
			if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
				return err
			}
			if existing != nil {
				src.Active = existing.Active
			}
			if err := s.store.SaveSource(ctx, &src); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed source")
			}
		}
		return nil
	})
}

func validateSource(sourceID id.SourceID, reporter id.Address, weightBps uint64) error {
	if _, err := id.ParseSourceID(sourceID.String()); err != nil {
		return err
	}
	if reporter.IsZero() {
		return dErrors.Newf(dErrors.CodeValidation, "source=%s reporter is required", sourceID)
	}
	if weightBps == 0 || weightBps > id.BasisPoints {
		return dErrors.Newf(dErrors.CodeValidation, "source=%s weight must be within 1..%d bps", sourceID, id.BasisPoints)
	}
	return nil
}

func (s *Service) SetSourceActive(ctx context.Context, sourceID id.SourceID, active bool) (*models.Source, error) {
	return s.updateSource(ctx, sourceID, func(src *models.Source) error {
		src.Active = active
		return nil
	})
}

func (s *Service) SetSourceWeight(ctx context.Context, sourceID id.SourceID, weightBps uint64) (*models.Source, error) {
	return s.updateSource(ctx, sourceID, func(src *models.Source) error {
		if weightBps == 0 || weightBps > id.BasisPoints {
			return dErrors.Newf(dErrors.CodeValidation, "source=%s weight must be within 1..%d bps", sourceID, id.BasisPoints)
		}
		src.WeightBps = weightBps
		return nil
	})
}

func (s *Service) updateSource(ctx context.Context, sourceID id.SourceID, mutate func(*models.Source) error) (*models.Source, error) {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return nil, err
	}
	var src *models.Source
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		src, err = s.findSource(ctx, sourceID)
		if err != nil {
			return err
		}
		before := sourceSummary(src)
		if err := mutate(src); err != nil {
			return err
		}
		if err := s.store.SaveSource(ctx, src); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save source")
		}
		s.emit(ctx, audit.EventSourceUpdated, sourceID, before, sourceSummary(src), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventSourceUpdated),
		"source", sourceID.String(),
		"active", src.Active,
		"weight_bps", src.WeightBps,
	)
	return src, nil
}

func sourceSummary(src *models.Source) string {
	state := "inactive"
	if src.Active {
		state = "active"
	}
	return state + " weight=" + strconv.FormatUint(src.WeightBps, 10) + " reporter=" + src.Reporter.String()
}

func (s *Service) findSource(ctx context.Context, sourceID id.SourceID) (*models.Source, error) {
	src, err := s.store.FindSource(ctx, sourceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "source=%s not registered", sourceID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read source")
	}
	return src, nil
}

// SubmitReport records an attestation from the source's reporter (the
// caller) and re-runs aggregation. A failed aggregation does not reject the
// report; it is returned in Submission.AggregationError.
func (s *Service) SubmitReport(ctx context.Context, sourceID id.SourceID, reserve, issued decimal.Decimal, timestamp time.Time) (*models.Submission, error) {
	ctx, span := tracer.Start(ctx, "coverage.SubmitReport",
		trace.WithAttributes(attribute.String("source", sourceID.String())),
	)
	defer span.End()

	sub, err := s.submitReport(ctx, sourceID, reserve, issued, timestamp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report rejected")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("aggregated", sub.Aggregate != nil))
	return sub, nil
}

func (s *Service) submitReport(ctx context.Context, sourceID id.SourceID, reserve, issued decimal.Decimal, timestamp time.Time) (*models.Submission, error) {
	if reserve.IsNegative() || issued.IsNegative() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "source=%s quantities cannot be negative", sourceID)
	}
	now := requestcontext.Now(ctx)
	caller := requestcontext.Actor(ctx)
	timestamp = timestamp.UTC()

	sub := &models.Submission{}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		src, err := s.findSource(ctx, sourceID)
		if err != nil {
			return err
		}
		if caller.IsZero() || caller != src.Reporter {
			return dErrors.Newf(dErrors.CodeUnauthorized, "source=%s caller is not the registered reporter", sourceID)
		}
		if !src.Active {
			return dErrors.Newf(dErrors.CodeConflict, "source=%s is inactive", sourceID)
		}
		if timestamp.After(now) {
			return dErrors.Newf(dErrors.CodeValidation, "source=%s report timestamp is in the future", sourceID)
		}
		if now.Sub(timestamp) > s.params.MaxAge {
			return dErrors.Newf(dErrors.CodeStaleReport, "source=%s report is older than %s", sourceID, s.params.MaxAge)
		}
		latest, err := s.store.LatestReport(ctx, sourceID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read latest report")
		}
		if latest != nil && !timestamp.After(latest.Timestamp) {
			return dErrors.Newf(dErrors.CodeStaleReport, "source=%s report is not newer than the last one", sourceID)
		}

		sub.Report = models.Report{
			SourceID:         sourceID,
			ReserveQuantity:  reserve,
			IssuedQuantity:   issued,
			CoverageRatioBps: models.SourceRatio(reserve, issued),
			Timestamp:        timestamp,
			Reporter:         caller,
		}
		if err := s.store.AppendReport(ctx, &sub.Report); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store report")
		}
		s.emit(ctx, audit.EventReportSubmitted, sourceID, "",
			strconv.FormatUint(sub.Report.CoverageRatioBps, 10), "")

		agg, err := s.aggregate(ctx, now)
		switch {
		case err == nil:
			sub.Aggregate = agg
		case dErrors.HasCode(err, dErrors.CodeInsufficientSources):
			sub.AggregationError = err
			s.emitAggregationFailed(ctx, err)
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncReport(sourceID.String())
	s.logAudit(ctx, string(audit.EventReportSubmitted),
		"source", sourceID.String(),
		"ratio_bps", sub.Report.CoverageRatioBps,
	)
	s.afterAggregation(ctx, sub.Aggregate, sub.AggregationError)
	return sub, nil
}

// Aggregate re-runs aggregation over the current reports. Keepers call it to
// let stale sources age out of the published ratio.
func (s *Service) Aggregate(ctx context.Context) (*models.Aggregate, error) {
	ctx, span := tracer.Start(ctx, "coverage.Aggregate")
	defer span.End()

	if err := s.auth.Require(ctx, access.Keeper); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	var agg *models.Aggregate
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		agg, err = s.aggregate(ctx, now)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregation failed")
		if dErrors.HasCode(err, dErrors.CodeInsufficientSources) {
			s.emitAggregationFailed(ctx, err)
			s.afterAggregation(ctx, nil, err)
		}
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("source_count", agg.SourceCount),
		attribute.String("ratio_bps", strconv.FormatUint(agg.CoverageRatioBps, 10)),
	)
	s.afterAggregation(ctx, agg, nil)
	return agg, nil
}

// aggregate computes and persists a new aggregate from the latest fresh
// report of each active source.
func (s *Service) aggregate(ctx context.Context, now time.Time) (*models.Aggregate, error) {
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sources")
	}
	var contribs []models.Contribution
	for _, src := range sources {
		if !src.Active {
			continue
		}
		latest, err := s.store.LatestReport(ctx, src.ID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read latest report")
		}
		if !latest.FreshAt(now, s.params.MaxAge) {
			continue
		}
		contribs = append(contribs, models.Contribution{Source: src.ID, WeightBps: src.WeightBps, Report: *latest})
	}

	agg, err := models.Compute(contribs, models.Params{
		MinSources:      s.params.MinSources,
		MaxDeviationBps: s.params.MaxDeviationBps,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendAggregate(ctx, agg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store aggregate")
	}
	if err := s.store.UpsertDaily(ctx, &models.DailySnapshot{
		Day:              models.Day(now),
		ReserveQuantity:  agg.ReserveQuantity,
		IssuedQuantity:   agg.IssuedQuantity,
		CoverageRatioBps: agg.CoverageRatioBps,
		AsOf:             agg.Timestamp,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store daily snapshot")
	}

	ratio := strconv.FormatUint(agg.CoverageRatioBps, 10)
	s.emitEntity(ctx, audit.EventCoverageAggregated, "coverage", ratio, excludedReason(agg.Excluded))
	if agg.CoverageRatioBps < s.params.FloorBps {
		s.emitEntity(ctx, audit.EventCoverageBreached, "coverage", ratio,
			"ratio below floor "+strconv.FormatUint(s.params.FloorBps, 10))
	}
	return agg, nil
}

func excludedReason(excluded []id.SourceID) string {
	if len(excluded) == 0 {
		return ""
	}
	names := make([]string, len(excluded))
	for i, e := range excluded {
		names[i] = e.String()
	}
	return "excluded: " + strings.Join(names, ",")
}

func (s *Service) emitAggregationFailed(ctx context.Context, err error) {
	s.emitEntity(ctx, audit.EventAggregationFailed, "coverage", "", err.Error())
}

// afterAggregation records metrics and logs once the round is settled.
func (s *Service) afterAggregation(ctx context.Context, agg *models.Aggregate, aggErr error) {
	if aggErr != nil {
		s.metrics.ObserveAggregation(false, 0, nil)
		if s.logger != nil {
			s.logger.WarnContext(ctx, "coverage aggregation failed, previous aggregate retained",
				"event", string(audit.EventAggregationFailed),
				"error", aggErr,
			)
		}
		return
	}
	if agg == nil {
		return
	}
	excluded := make([]string, len(agg.Excluded))
	for i, e := range agg.Excluded {
		excluded[i] = e.String()
	}
	s.metrics.ObserveAggregation(true, agg.CoverageRatioBps, excluded)
	s.logAudit(ctx, string(audit.EventCoverageAggregated),
		"ratio_bps", agg.CoverageRatioBps,
		"source_count", agg.SourceCount,
		"excluded", excluded,
	)
	if agg.CoverageRatioBps < s.params.FloorBps {
		s.metrics.IncBreach()
		if s.logger != nil {
			s.logger.WarnContext(ctx, "coverage below floor",
				"event", string(audit.EventCoverageBreached),
				"log_type", "audit",
				"ratio_bps", agg.CoverageRatioBps,
				"floor_bps", s.params.FloorBps,
			)
		}
	}
}

// Health evaluates, in order: emergency halt, missing aggregate, stale
// aggregate, ratio below floor.
func (s *Service) Health(ctx context.Context) (*models.Health, error) {
	halt, err := s.flags.Get(ctx, flags.EmergencyHalt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read emergency halt")
	}
	h := &models.Health{Halted: halt.Active}

	agg, err := s.store.LatestAggregate(ctx)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read aggregate")
	}
	if agg != nil {
		h.RatioBps = agg.CoverageRatioBps
	}

	switch {
	case halt.Active:
		h.Reason = models.HealthReasonHalted
	case agg == nil:
		h.Reason = models.HealthReasonNoAggregate
	case requestcontext.Now(ctx).Sub(agg.Timestamp) > s.params.MaxAge:
		h.Reason = models.HealthReasonStale
	case agg.CoverageRatioBps < s.params.FloorBps:
		h.Reason = models.HealthReasonBelowFloor
	default:
		h.Healthy = true
	}
	return h, nil
}

// IsHealthy reports whether issuance and payouts may proceed, with the
// latest ratio (0 when none has been published).
func (s *Service) IsHealthy(ctx context.Context) (bool, uint64, error) {
	h, err := s.Health(ctx)
	if err != nil {
		return false, 0, err
	}
	return h.Healthy, h.RatioBps, nil
}

// EmergencyHalt forces the oracle unhealthy until Resume, regardless of the
// published ratio. Halting while halted replaces the reason.
func (s *Service) EmergencyHalt(ctx context.Context, reason string) error {
	if err := s.auth.Require(ctx, access.Pauser); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.flags.Set(ctx, flags.Flag{
			Name:      flags.EmergencyHalt,
			Active:    true,
			Reason:    reason,
			UpdatedBy: requestcontext.Actor(ctx),
			UpdatedAt: requestcontext.Now(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set emergency halt")
		}
		s.emitEntity(ctx, audit.EventEmergencyHalt, "coverage", flags.EmergencyHalt, reason)
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.SetHalted(true)
	s.logAudit(ctx, string(audit.EventEmergencyHalt), "reason", reason)
	return nil
}

func (s *Service) Resume(ctx context.Context) error {
	if err := s.auth.Require(ctx, access.Pauser); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.flags.Get(ctx, flags.EmergencyHalt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read emergency halt")
		}
		if !current.Active {
			return dErrors.New(dErrors.CodeConflict, "oracle is not halted")
		}
		if err := s.flags.Set(ctx, flags.Flag{
			Name:      flags.EmergencyHalt,
			UpdatedBy: requestcontext.Actor(ctx),
			UpdatedAt: requestcontext.Now(ctx),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear emergency halt")
		}
		s.emitEntity(ctx, audit.EventEmergencyResume, "coverage", flags.EmergencyHalt, current.Reason)
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.SetHalted(false)
	s.logAudit(ctx, string(audit.EventEmergencyResume))
	return nil
}

func (s *Service) Latest(ctx context.Context) (*models.Aggregate, error) {
	agg, err := s.store.LatestAggregate(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no coverage aggregate published")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read aggregate")
	}
	return agg, nil
}

// History returns daily snapshots for the UTC days from..to inclusive.
func (s *Service) History(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	from, to = models.Day(from), models.Day(to)
	if to.Before(from) {
		return nil, dErrors.New(dErrors.CodeValidation, "history range ends before it starts")
	}
	snaps, err := s.store.ListDaily(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read coverage history")
	}
	return snaps, nil
}

func (s *Service) Sources(ctx context.Context) ([]models.SourceView, error) {
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sources")
	}
	now := requestcontext.Now(ctx)
	out := make([]models.SourceView, 0, len(sources))
	for _, src := range sources {
		latest, err := s.store.LatestReport(ctx, src.ID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read latest report")
		}
		out = append(out, models.SourceView{Source: src, Status: src.Status(latest, now, s.params.MaxAge), Latest: latest})
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, sourceID id.SourceID, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "source",
		EntityID: sourceID.String(),
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
