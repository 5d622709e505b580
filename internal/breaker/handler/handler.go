package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"aurum/internal/breaker"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

type Service interface {
	Status(ctx context.Context) (*breaker.Status, error)
	Pause(ctx context.Context, reason string) error
	Unpause(ctx context.Context) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/breaker", h.HandleStatus)
	r.Post("/breaker/pause", h.HandlePause)
	r.Post("/breaker/unpause", h.HandleUnpause)
}

type PauseRequest struct {
	Reason string `json:"reason"`
}

func (r *PauseRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type StatusResponse struct {
	Open        bool   `json:"open"`
	Paused      bool   `json:"paused"`
	PauseReason string `json:"pause_reason,omitempty"`
	Healthy     bool   `json:"healthy"`
	RatioBps    string `json:"ratio_bps"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Open:        st.Open,
		Paused:      st.Paused,
		PauseReason: st.PauseReason,
		Healthy:     st.Healthy,
		RatioBps:    strconv.FormatUint(st.RatioBps, 10),
	})
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[PauseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.Pause(ctx, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.WarnContext(ctx, "ledger paused", "request_id", requestID, "reason", req.Reason)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"paused": true})
}

func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unpause(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"paused": false})
}
