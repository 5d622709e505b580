package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"aurum/internal/coverage/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Service is the coverage oracle as seen by HTTP.
type Service interface {
	RegisterSource(ctx context.Context, sourceID id.SourceID, reporter id.Address, weightBps uint64) (*models.Source, error)
	SetSourceActive(ctx context.Context, sourceID id.SourceID, active bool) (*models.Source, error)
	SetSourceWeight(ctx context.Context, sourceID id.SourceID, weightBps uint64) (*models.Source, error)
	SubmitReport(ctx context.Context, sourceID id.SourceID, reserve, issued decimal.Decimal, timestamp time.Time) (*models.Submission, error)
	Aggregate(ctx context.Context) (*models.Aggregate, error)
	Health(ctx context.Context) (*models.Health, error)
	EmergencyHalt(ctx context.Context, reason string) error
	Resume(ctx context.Context) error
	Latest(ctx context.Context) (*models.Aggregate, error)
	History(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error)
	Sources(ctx context.Context) ([]models.SourceView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/coverage/health", h.HandleHealth)
	r.Get("/coverage/latest", h.HandleLatest)
	r.Get("/coverage/history", h.HandleHistory)
	r.Post("/coverage/aggregate", h.HandleAggregate)
	r.Post("/coverage/halt", h.HandleHalt)
	r.Post("/coverage/resume", h.HandleResume)
	r.Get("/coverage/sources", h.HandleListSources)
	r.Post("/coverage/sources", h.HandleRegisterSource)
	r.Put("/coverage/sources/{source}/active", h.HandleSetActive)
	r.Put("/coverage/sources/{source}/weight", h.HandleSetWeight)
	r.Post("/coverage/sources/{source}/reports", h.HandleSubmitReport)
}

type RegisterSourceRequest struct {
	SourceID  string `json:"source_id"`
	Reporter  string `json:"reporter"`
	WeightBps uint64 `json:"weight_bps"`

	source   id.SourceID
	reporter id.Address
}

func (r *RegisterSourceRequest) Normalize() {
	r.SourceID = strings.TrimSpace(r.SourceID)
	r.Reporter = strings.TrimSpace(r.Reporter)
}

func (r *RegisterSourceRequest) Validate() error {
	var err error
	if r.source, err = id.ParseSourceID(r.SourceID); err != nil {
		return err
	}
	if r.reporter, err = id.ParseAddress(r.Reporter); err != nil {
		return err
	}
	return nil
}

type ActiveRequest struct {
	Active *bool `json:"active"`
}

func (r *ActiveRequest) Validate() error {
	if r.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "active is required")
	}
	return nil
}

type WeightRequest struct {
	WeightBps uint64 `json:"weight_bps"`
}

func (r *WeightRequest) Validate() error {
	if r.WeightBps == 0 {
		return dErrors.New(dErrors.CodeValidation, "weight_bps is required")
	}
	return nil
}

// ReportRequest carries quantities as integer strings in base units.
type ReportRequest struct {
	ReserveQuantity string    `json:"reserve_quantity"`
	IssuedQuantity  string    `json:"issued_quantity"`
	Timestamp       time.Time `json:"timestamp"`

	reserve decimal.Decimal
	issued  decimal.Decimal
}

func (r *ReportRequest) Validate() error {
	var err error
	if r.reserve, err = id.ParseAmount(r.ReserveQuantity); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid reserve_quantity")
	}
	if r.issued, err = id.ParseAmount(r.IssuedQuantity); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid issued_quantity")
	}
	if r.Timestamp.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "timestamp is required")
	}
	return nil
}

type HaltRequest struct {
	Reason string `json:"reason"`
}

func (r *HaltRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// Ratios are rendered as strings: a saturated ratio does not fit a JSON number.
type AggregateResponse struct {
	ReserveQuantity  string    `json:"reserve_quantity"`
	IssuedQuantity   string    `json:"issued_quantity"`
	CoverageRatioBps string    `json:"coverage_ratio_bps"`
	Timestamp        time.Time `json:"timestamp"`
	SourceCount      int       `json:"source_count"`
	Excluded         []string  `json:"excluded"`
	ComputedAt       time.Time `json:"computed_at"`
}

func toAggregateResponse(a *models.Aggregate) *AggregateResponse {
	if a == nil {
		return nil
	}
	excluded := make([]string, len(a.Excluded))
	for i, e := range a.Excluded {
		excluded[i] = e.String()
	}
	return &AggregateResponse{
		ReserveQuantity:  a.ReserveQuantity.String(),
		IssuedQuantity:   a.IssuedQuantity.String(),
		CoverageRatioBps: ratio(a.CoverageRatioBps),
		Timestamp:        a.Timestamp,
		SourceCount:      a.SourceCount,
		Excluded:         excluded,
		ComputedAt:       a.ComputedAt,
	}
}

type ReportResponse struct {
	SourceID         string    `json:"source_id"`
	ReserveQuantity  string    `json:"reserve_quantity"`
	IssuedQuantity   string    `json:"issued_quantity"`
	CoverageRatioBps string    `json:"coverage_ratio_bps"`
	Timestamp        time.Time `json:"timestamp"`
	Reporter         string    `json:"reporter"`
}

func toReportResponse(r *models.Report) *ReportResponse {
	if r == nil {
		return nil
	}
	return &ReportResponse{
		SourceID:         r.SourceID.String(),
		ReserveQuantity:  r.ReserveQuantity.String(),
		IssuedQuantity:   r.IssuedQuantity.String(),
		CoverageRatioBps: ratio(r.CoverageRatioBps),
		Timestamp:        r.Timestamp,
		Reporter:         r.Reporter.String(),
	}
}

type SubmissionResponse struct {
	Report           *ReportResponse    `json:"report"`
	Aggregate        *AggregateResponse `json:"aggregate,omitempty"`
	AggregationError string             `json:"aggregation_error,omitempty"`
}

type SourceResponse struct {
	SourceID  string          `json:"source_id"`
	Reporter  string          `json:"reporter"`
	WeightBps uint64          `json:"weight_bps"`
	Active    bool            `json:"active"`
	Status    string          `json:"status,omitempty"`
	Latest    *ReportResponse `json:"latest_report,omitempty"`
}

func toSourceResponse(src *models.Source) SourceResponse {
	return SourceResponse{
		SourceID:  src.ID.String(),
		Reporter:  src.Reporter.String(),
		WeightBps: src.WeightBps,
		Active:    src.Active,
	}
}

type HealthResponse struct {
	Healthy  bool   `json:"healthy"`
	RatioBps string `json:"ratio_bps"`
	Halted   bool   `json:"halted"`
	Reason   string `json:"reason,omitempty"`
}

type SnapshotResponse struct {
	Day              string    `json:"day"`
	ReserveQuantity  string    `json:"reserve_quantity"`
	IssuedQuantity   string    `json:"issued_quantity"`
	CoverageRatioBps string    `json:"coverage_ratio_bps"`
	AsOf             time.Time `json:"as_of"`
}

func ratio(v uint64) string { return strconv.FormatUint(v, 10) }

func sourceParam(w http.ResponseWriter, r *http.Request) (id.SourceID, bool) {
	src, err := id.ParseSourceID(chi.URLParam(r, "source"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return src, true
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.Health(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Healthy:  health.Healthy,
		RatioBps: ratio(health.RatioBps),
		Halted:   health.Halted,
		Reason:   health.Reason,
	})
}

func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.Latest(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAggregateResponse(agg))
}

// HandleHistory serves GET /coverage/history?from=2006-01-02&to=2006-01-02.
// Both bounds default to today.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := models.Day(requestcontext.Now(ctx))
	from, err := dayParam(r, "from", today)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := dayParam(r, "to", today)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snaps, err := h.service.History(ctx, from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]SnapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, SnapshotResponse{
			Day:              snap.Day.Format(time.DateOnly),
			ReserveQuantity:  snap.ReserveQuantity.String(),
			IssuedQuantity:   snap.IssuedQuantity.String(),
			CoverageRatioBps: ratio(snap.CoverageRatioBps),
			AsOf:             snap.AsOf,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"snapshots": out})
}

func dayParam(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a YYYY-MM-DD date", key)
	}
	return day, nil
}

func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.Aggregate(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAggregateResponse(agg))
}

func (h *Handler) HandleHalt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[HaltRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.EmergencyHalt(ctx, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.WarnContext(ctx, "coverage emergency halt engaged", "request_id", requestID, "reason", req.Reason)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"halted": true, "reason": req.Reason})
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Resume(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"halted": false})
}

func (h *Handler) HandleListSources(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Sources(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]SourceResponse, 0, len(views))
	for i := range views {
		resp := toSourceResponse(&views[i].Source)
		resp.Status = string(views[i].Status)
		resp.Latest = toReportResponse(views[i].Latest)
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sources": out})
}

func (h *Handler) HandleRegisterSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterSourceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	src, err := h.service.RegisterSource(ctx, req.source, req.reporter, req.WeightBps)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSourceResponse(src))
}

func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, ok := sourceParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ActiveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	src, err := h.service.SetSourceActive(ctx, source, *req.Active)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSourceResponse(src))
}

func (h *Handler) HandleSetWeight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source, ok := sourceParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[WeightRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	src, err := h.service.SetSourceWeight(ctx, source, req.WeightBps)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSourceResponse(src))
}

func (h *Handler) HandleSubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	source, ok := sourceParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sub, err := h.service.SubmitReport(ctx, source, req.reserve, req.issued, req.Timestamp)
	if err != nil {
		h.logger.WarnContext(ctx, "reserve report rejected",
			"request_id", requestID,
			"source", source.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := SubmissionResponse{
		Report:    toReportResponse(&sub.Report),
		Aggregate: toAggregateResponse(sub.Aggregate),
	}
	if sub.AggregationError != nil {
		resp.AggregationError = sub.AggregationError.Error()
	}
	httputil.WriteJSON(w, http.StatusAccepted, resp)
}
