package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"aurum/internal/yield/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

type Service interface {
	StartEpoch(ctx context.Context, rateBps int64) (*models.Epoch, error)
	Claim(ctx context.Context, holder id.Address, n id.EpochNumber) (*models.Claim, error)
	ClaimMultiple(ctx context.Context, holder id.Address, epochs []id.EpochNumber) (*models.MultiClaim, error)
	GetClaimableAmount(ctx context.Context, holder id.Address, n id.EpochNumber) (decimal.Decimal, error)
	CheckUpkeep(ctx context.Context) (*models.UpkeepStatus, error)
	PerformUpkeep(ctx context.Context) (*models.Epoch, error)
	GetEpoch(ctx context.Context, n id.EpochNumber) (*models.Epoch, error)
	CurrentEpoch(ctx context.Context) (*models.Epoch, error)
	ListEpochs(ctx context.Context) ([]models.Epoch, error)
	ListClaims(ctx context.Context, holder id.Address) ([]models.Claim, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/yield/epochs", h.HandleStartEpoch)
	r.Get("/yield/epochs", h.HandleListEpochs)
	r.Get("/yield/epochs/current", h.HandleCurrentEpoch)
	r.Get("/yield/epochs/{epoch}", h.HandleGetEpoch)
	r.Post("/yield/epochs/{epoch}/claim", h.HandleClaim)
	r.Post("/yield/claims", h.HandleClaimMultiple)
	r.Get("/yield/claimable/{holder}/{epoch}", h.HandleClaimable)
	r.Get("/yield/upkeep", h.HandleCheckUpkeep)
	r.Post("/yield/upkeep", h.HandlePerformUpkeep)
	r.Get("/holders/{holder}/yield-claims", h.HandleListClaims)
}

type StartEpochRequest struct {
	RateBps int64 `json:"rate_bps"`
}

func (r *StartEpochRequest) Validate() error {
	if r.RateBps <= 0 {
		return dErrors.New(dErrors.CodeValidation, "rate_bps must be positive")
	}
	return nil
}

type ClaimRequest struct {
	Holder string `json:"holder"`

	holder id.Address
}

func (r *ClaimRequest) Validate() error {
	var err error
	r.holder, err = id.ParseAddress(strings.TrimSpace(r.Holder))
	return err
}

type ClaimMultipleRequest struct {
	Holder string   `json:"holder"`
	Epochs []uint64 `json:"epochs"`

	holder id.Address
	epochs []id.EpochNumber
}

func (r *ClaimMultipleRequest) Validate() error {
	var err error
	if r.holder, err = id.ParseAddress(strings.TrimSpace(r.Holder)); err != nil {
		return err
	}
	if len(r.Epochs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "epochs are required")
	}
	r.epochs = make([]id.EpochNumber, 0, len(r.Epochs))
	for _, n := range r.Epochs {
		if n == 0 {
			return dErrors.New(dErrors.CodeValidation, "epochs start at 1")
		}
		r.epochs = append(r.epochs, id.EpochNumber(n))
	}
	return nil
}

type EpochResponse struct {
	Number                 uint64     `json:"number"`
	StartTime              time.Time  `json:"start_time"`
	EndTime                time.Time  `json:"end_time"`
	RateBps                int64      `json:"rate_bps"`
	EligibleSupplySnapshot string     `json:"eligible_supply_snapshot"`
	TotalClaimed           string     `json:"total_claimed"`
	Finalized              bool       `json:"finalized"`
	FinalizedAt            *time.Time `json:"finalized_at,omitempty"`
}

func toEpoch(e *models.Epoch) EpochResponse {
	resp := EpochResponse{
		Number:                 uint64(e.Number),
		StartTime:              e.StartTime,
		EndTime:                e.EndTime,
		RateBps:                e.RateBps,
		EligibleSupplySnapshot: e.EligibleSupplySnapshot.String(),
		TotalClaimed:           e.TotalClaimed.String(),
		Finalized:              e.Finalized,
	}
	if !e.FinalizedAt.IsZero() {
		resp.FinalizedAt = &e.FinalizedAt
	}
	return resp
}

type ClaimResponse struct {
	Epoch     uint64    `json:"epoch"`
	Holder    string    `json:"holder"`
	Amount    string    `json:"amount"`
	ClaimedAt time.Time `json:"claimed_at"`
}

func toClaim(c *models.Claim) ClaimResponse {
	return ClaimResponse{
		Epoch:     uint64(c.Epoch),
		Holder:    c.Holder.String(),
		Amount:    c.Amount.String(),
		ClaimedAt: c.ClaimedAt,
	}
}

type SkippedResponse struct {
	Epoch  uint64 `json:"epoch"`
	Reason string `json:"reason"`
}

type MultiClaimResponse struct {
	Holder  string            `json:"holder"`
	Total   string            `json:"total"`
	Claims  []ClaimResponse   `json:"claims"`
	Skipped []SkippedResponse `json:"skipped"`
}

type UpkeepResponse struct {
	Needed       bool      `json:"upkeep_needed"`
	CurrentEpoch uint64    `json:"current_epoch"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	WindowEnd    time.Time `json:"window_end"`
}

func epochParam(r *http.Request) (id.EpochNumber, error) {
	return id.ParseEpochNumber(chi.URLParam(r, "epoch"))
}

func (h *Handler) HandleStartEpoch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[StartEpochRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	e, err := h.service.StartEpoch(ctx, req.RateBps)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEpoch(e))
}

func (h *Handler) HandleListEpochs(w http.ResponseWriter, r *http.Request) {
	epochs, err := h.service.ListEpochs(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]EpochResponse, 0, len(epochs))
	for i := range epochs {
		out = append(out, toEpoch(&epochs[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"epochs": out})
}

func (h *Handler) HandleCurrentEpoch(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.CurrentEpoch(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEpoch(e))
}

func (h *Handler) HandleGetEpoch(w http.ResponseWriter, r *http.Request) {
	n, err := epochParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.service.GetEpoch(r.Context(), n)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toEpoch(e))
}

func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := epochParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Claim(ctx, req.holder, n)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toClaim(c))
}

func (h *Handler) HandleClaimMultiple(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ClaimMultipleRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	out, err := h.service.ClaimMultiple(ctx, req.holder, req.epochs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := MultiClaimResponse{
		Holder:  out.Holder.String(),
		Total:   out.Total.String(),
		Claims:  make([]ClaimResponse, 0, len(out.Claims)),
		Skipped: make([]SkippedResponse, 0, len(out.Skipped)),
	}
	for i := range out.Claims {
		resp.Claims = append(resp.Claims, toClaim(&out.Claims[i]))
	}
	for _, sk := range out.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedResponse{Epoch: uint64(sk.Epoch), Reason: string(sk.Reason)})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleClaimable(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := epochParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := h.service.GetClaimableAmount(r.Context(), holder, n)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"holder":    holder.String(),
		"epoch":     uint64(n),
		"claimable": amount.String(),
	})
}

func (h *Handler) HandleCheckUpkeep(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.CheckUpkeep(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UpkeepResponse{
		Needed:       st.Needed,
		CurrentEpoch: uint64(st.CurrentEpoch),
		ScheduledAt:  st.ScheduledAt,
		WindowEnd:    st.WindowEnd,
	})
}

func (h *Handler) HandlePerformUpkeep(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.PerformUpkeep(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toEpoch(e))
}

func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	claims, err := h.service.ListClaims(r.Context(), holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]ClaimResponse, 0, len(claims))
	for i := range claims {
		out = append(out, toClaim(&claims[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"claims": out})
}
