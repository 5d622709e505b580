package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aurum/internal/identity/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Service is the identity registry as seen by HTTP.
type Service interface {
	Issue(ctx context.Context, req models.IssueRequest) (*models.Record, error)
	Get(ctx context.Context, holder id.Address) (*models.Record, error)
	IsValid(ctx context.Context, holder id.Address) (bool, error)
	Revoke(ctx context.Context, holder id.Address, reason string) (*models.Record, error)
	ExtendValidity(ctx context.Context, holder id.Address, extra time.Duration) (*models.Record, error)
	UpdateLevel(ctx context.Context, holder id.Address, level models.KYCLevel, accreditation models.Accreditation) (*models.Record, error)
	ApproveProvider(ctx context.Context, provider string) error
	RemoveProvider(ctx context.Context, provider string) error
	ApproveJurisdiction(ctx context.Context, code id.Jurisdiction) error
	RemoveJurisdiction(ctx context.Context, code id.Jurisdiction) error
	Allowed(ctx context.Context, kind models.AllowKind) ([]string, error)
	Stats(ctx context.Context) (models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/identities", h.HandleIssue)
	r.Get("/identities/stats", h.HandleStats)
	r.Get("/identities/{holder}", h.HandleGet)
	r.Get("/identities/{holder}/valid", h.HandleIsValid)
	r.Post("/identities/{holder}/revoke", h.HandleRevoke)
	r.Post("/identities/{holder}/extend", h.HandleExtend)
	r.Post("/identities/{holder}/level", h.HandleUpdateLevel)
	r.Get("/identity/providers", h.handleListAllowed(models.AllowProvider))
	r.Post("/identity/providers", h.HandleApproveProvider)
	r.Delete("/identity/providers/{value}", h.HandleRemoveProvider)
	r.Get("/identity/jurisdictions", h.handleListAllowed(models.AllowJurisdiction))
	r.Post("/identity/jurisdictions", h.HandleApproveJurisdiction)
	r.Delete("/identity/jurisdictions/{value}", h.HandleRemoveJurisdiction)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.Issue(ctx, req.parsed)
	if err != nil {
		h.logger.WarnContext(ctx, "identity issuance failed",
			"request_id", requestID,
			"holder", req.Holder,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record, requestcontext.Now(ctx)))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.service.Get(ctx, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, requestcontext.Now(ctx)))
}

func (h *Handler) HandleIsValid(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	valid, err := h.service.IsValid(r.Context(), holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"holder": holder, "valid": valid})
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	record, err := h.service.Revoke(ctx, holder, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, requestcontext.Now(ctx)))
}

func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExtendRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	record, err := h.service.ExtendValidity(ctx, holder, time.Duration(req.ExtraSeconds)*time.Second)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, requestcontext.Now(ctx)))
}

func (h *Handler) HandleUpdateLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[LevelRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	record, err := h.service.UpdateLevel(ctx, holder, req.level, req.accreditation)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record, requestcontext.Now(ctx)))
}

func (h *Handler) HandleApproveProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AllowRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.ApproveProvider(ctx, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveProvider(r.Context(), chi.URLParam(r, "value")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleApproveJurisdiction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AllowRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	code, err := id.ParseJurisdiction(req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.ApproveJurisdiction(ctx, code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveJurisdiction(w http.ResponseWriter, r *http.Request) {
	code, err := id.ParseJurisdiction(chi.URLParam(r, "value"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RemoveJurisdiction(r.Context(), code); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAllowed(kind models.AllowKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := h.service.Allowed(r.Context(), kind)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{string(kind) + "s": values})
	}
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := StatsResponse{
		Active:          stats.Active,
		ByLevel:         make(map[string]int, len(stats.ByLevel)),
		ByAccreditation: make(map[string]int, len(stats.ByAccreditation)),
	}
	for l, n := range stats.ByLevel {
		resp.ByLevel[l.String()] = n
	}
	for a, n := range stats.ByAccreditation {
		resp.ByAccreditation[a.String()] = n
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
