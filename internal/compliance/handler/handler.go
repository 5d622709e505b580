package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aurum/internal/compliance/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Service is the compliance engine as seen by HTTP.
type Service interface {
	Evaluate(ctx context.Context, holder id.Address, action models.Action) (models.Decision, error)
	GetProfile(ctx context.Context, holder id.Address) (*models.Profile, error)
	SetProfile(ctx context.Context, in models.ProfileInput) (*models.Profile, error)
	AddToSanctionsList(ctx context.Context, holder id.Address, list models.SanctionsList) error
	RemoveFromSanctionsList(ctx context.Context, holder id.Address, list models.SanctionsList) error
	SetGlobalBlock(ctx context.Context, holder id.Address, blocked bool, reason string) error
	ListActionConfigs(ctx context.Context) ([]*models.ActionConfig, error)
	SetActionConfig(ctx context.Context, cfg models.ActionConfig) error
	GetJurisdictionRule(ctx context.Context, code id.Jurisdiction) (*models.JurisdictionRule, error)
	SetJurisdictionRule(ctx context.Context, rule models.JurisdictionRule) (*models.JurisdictionRule, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/compliance/check/{holder}/{action}", h.HandleCheck)
	r.Get("/compliance/profiles/{holder}", h.HandleGetProfile)
	r.Put("/compliance/profiles/{holder}", h.HandleSetProfile)
	r.Post("/compliance/profiles/{holder}/sanctions", h.HandleAddSanctions)
	r.Delete("/compliance/profiles/{holder}/sanctions/{list}", h.HandleRemoveSanctions)
	r.Post("/compliance/blocks/{holder}", h.HandleSetBlock)
	r.Get("/compliance/actions", h.HandleListActions)
	r.Put("/compliance/actions/{action}", h.HandleSetAction)
	r.Get("/compliance/jurisdictions/{code}", h.HandleGetRule)
	r.Put("/compliance/jurisdictions/{code}", h.HandleSetRule)
}

func holderParam(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return holder, true
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	action, err := models.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Evaluate(r.Context(), holder, action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DecisionResponse{
		Holder:  d.Holder.String(),
		Action:  string(d.Action),
		Allowed: d.Allowed,
		Reason:  string(d.Reason),
		Detail:  d.Detail,
	})
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProfile(r.Context(), holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) HandleSetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := req.parsed
	in.Holder = holder
	p, err := h.service.SetProfile(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "compliance profile update failed",
			"request_id", requestID,
			"holder", holder.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) HandleAddSanctions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SanctionsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.AddToSanctionsList(ctx, holder, req.list); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveSanctions(w http.ResponseWriter, r *http.Request) {
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	list, err := models.ParseSanctionsList(chi.URLParam(r, "list"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RemoveFromSanctionsList(r.Context(), holder, list); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSetBlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, ok := holderParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BlockRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetGlobalBlock(ctx, holder, req.Blocked, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListActions(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListActionConfigs(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": configs})
}

func (h *Handler) HandleSetAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	action, err := models.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ActionConfigRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cfg := req.parsed
	cfg.Action = action
	if err := h.service.SetActionConfig(ctx, cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handler) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	code, err := id.ParseJurisdiction(chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rule, err := h.service.GetJurisdictionRule(r.Context(), code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) HandleSetRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, err := id.ParseJurisdiction(chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RuleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rule, err := h.service.SetJurisdictionRule(ctx, models.JurisdictionRule{
		Code:                 code,
		Allowed:              req.Allowed,
		MaxParticipants:      req.MaxParticipants,
		PerParticipantCapUSD: req.cap,
		RequiresEnhancedKYC:  req.RequiresEnhancedKYC,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRuleResponse(rule))
}
