// Package admin exposes capability grants and the audit trail to operators
// of the ledger.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aurum/internal/access"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/httputil"
)

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
	Grant(ctx context.Context, actor id.Address, c access.Capability) error
	Revoke(ctx context.Context, actor id.Address, c access.Capability) error
	Capabilities(actor id.Address) []access.Capability
}

type AuditReader interface {
	ListByEntity(ctx context.Context, entityID string) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

const (
	defaultRecent = 100
	maxRecent     = 1000
)

type Handler struct {
	auth   Authorizer
	trail  AuditReader
	logger *slog.Logger
}

func New(auth Authorizer, trail AuditReader, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, trail: trail, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/actors/{actor}/capabilities", h.HandleCapabilities)
	r.Put("/admin/actors/{actor}/capabilities/{capability}", h.HandleGrant)
	r.Delete("/admin/actors/{actor}/capabilities/{capability}", h.HandleRevoke)
	r.Get("/audit/entities/{entity_id}", h.HandleEntityTrail)
	r.Get("/audit/recent", h.HandleRecent)
}

func (h *Handler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	actor, err := id.ParseAddress(chi.URLParam(r, "actor"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auth.Require(r.Context(), access.Admin); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCapabilities(actor.String(), h.auth.Capabilities(actor)))
}

func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, h.auth.Grant)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, h.auth.Revoke)
}

func (h *Handler) changeGrant(w http.ResponseWriter, r *http.Request, change func(context.Context, id.Address, access.Capability) error) {
	actor, err := id.ParseAddress(chi.URLParam(r, "actor"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := access.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := change(r.Context(), actor, c); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCapabilities(actor.String(), h.auth.Capabilities(actor)))
}

func (h *Handler) HandleEntityTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.trail.ListByEntity(ctx, chi.URLParam(r, "entity_id"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit trail", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrail(events))
}

func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := defaultRecent
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecent)
	}
	events, err := h.trail.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit trail", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditTrail(events))
}
