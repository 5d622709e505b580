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

	"aurum/internal/subscription/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// maxBatch bounds one batch maturation request.
const maxBatch = 200

type Service interface {
	Subscribe(ctx context.Context, in models.Intent) (*models.Subscription, error)
	Mature(ctx context.Context, holder id.Address, subID id.SubscriptionID) (*models.Subscription, error)
	MatureBatch(ctx context.Context, refs []models.MaturationRef) []models.MaturationOutcome
	Get(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error)
	ListByHolder(ctx context.Context, holder id.Address) ([]models.Subscription, error)
	DueForMaturation(ctx context.Context, limit int) ([]models.Subscription, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/subscriptions", h.HandleSubscribe)
	r.Get("/subscriptions/stats", h.HandleStats)
	r.Get("/subscriptions/due", h.HandleDue)
	r.Post("/subscriptions/mature-batch", h.HandleMatureBatch)
	r.Get("/subscriptions/{id}", h.HandleGet)
	r.Post("/subscriptions/{id}/mature", h.HandleMature)
	r.Get("/holders/{holder}/subscriptions", h.HandleListByHolder)
}

type SubscribeRequest struct {
	Holder          string `json:"holder"`
	USDAmount       string `json:"usd_amount"`
	LockMode        string `json:"lock_mode"`
	DocumentHash    string `json:"document_hash"`
	DocumentLocator string `json:"document_locator"`
	DocType         string `json:"doc_type,omitempty"`

	intent models.Intent
}

func (r *SubscribeRequest) Normalize() {
	r.Holder = strings.TrimSpace(r.Holder)
	r.DocumentHash = strings.TrimSpace(r.DocumentHash)
	r.DocumentLocator = strings.TrimSpace(r.DocumentLocator)
	r.DocType = strings.TrimSpace(r.DocType)
}

func (r *SubscribeRequest) Validate() error {
	holder, err := id.ParseAddress(r.Holder)
	if err != nil {
		return err
	}
	amount, err := id.ParseAmount(r.USDAmount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid usd_amount")
	}
	mode, err := models.ParseLockMode(r.LockMode)
	if err != nil {
		return err
	}
	hash, err := id.ParseHash(r.DocumentHash)
	if err != nil {
		return err
	}
	if r.DocumentLocator == "" {
		return dErrors.New(dErrors.CodeValidation, "document_locator is required")
	}
	r.intent = models.Intent{
		Holder:          holder,
		USDAmount:       amount,
		LockMode:        mode,
		DocumentHash:    hash,
		DocumentLocator: r.DocumentLocator,
		DocType:         r.DocType,
	}
	return nil
}

type MatureRequest struct {
	Holder string `json:"holder"`

	holder id.Address
}

func (r *MatureRequest) Validate() error {
	var err error
	r.holder, err = id.ParseAddress(strings.TrimSpace(r.Holder))
	return err
}

type BatchRequest struct {
	Items []MaturationItem `json:"items"`

	refs []models.MaturationRef
}

type MaturationItem struct {
	Holder string `json:"holder"`
	ID     string `json:"id"`
}

func (r *BatchRequest) Validate() error {
	if len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "items are required")
	}
	if len(r.Items) > maxBatch {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d items per batch", maxBatch)
	}
	r.refs = make([]models.MaturationRef, 0, len(r.Items))
	for i, item := range r.Items {
		holder, err := id.ParseAddress(strings.TrimSpace(item.Holder))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "items["+strconv.Itoa(i)+"].holder")
		}
		subID, err := id.ParseSubscriptionID(strings.TrimSpace(item.ID))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "items["+strconv.Itoa(i)+"].id")
		}
		r.refs = append(r.refs, models.MaturationRef{Holder: holder, ID: subID})
	}
	return nil
}

type SubscriptionResponse struct {
	ID                  string     `json:"id"`
	Holder              string     `json:"holder"`
	DepositUSD          string     `json:"deposit_usd"`
	EntryPriceUSD       string     `json:"entry_price_usd"`
	UnitsAllocated      string     `json:"units_allocated"`
	LockMode            string     `json:"lock_mode"`
	State               string     `json:"state"`
	CliffEndTime        time.Time  `json:"cliff_end_time"`
	ExtendedHoldEndTime *time.Time `json:"extended_hold_end_time,omitempty"`
	DocumentHash        string     `json:"document_hash"`
	Matured             bool       `json:"matured"`
	MaturedAt           *time.Time `json:"matured_at,omitempty"`
	SubscriptionTime    time.Time  `json:"subscription_time"`
}

func toResponse(sub *models.Subscription, now time.Time) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:               sub.ID.String(),
		Holder:           sub.Holder.String(),
		DepositUSD:       sub.DepositUSD.String(),
		EntryPriceUSD:    sub.EntryPriceUSD.String(),
		UnitsAllocated:   sub.UnitsAllocated.String(),
		LockMode:         string(sub.LockMode),
		State:            string(sub.State(now)),
		CliffEndTime:     sub.CliffEndTime,
		DocumentHash:     sub.DocumentHash.String(),
		Matured:          sub.Matured,
		SubscriptionTime: sub.SubscriptionTime,
	}
	if !sub.ExtendedHoldEndTime.IsZero() {
		resp.ExtendedHoldEndTime = &sub.ExtendedHoldEndTime
	}
	if !sub.MaturedAt.IsZero() {
		resp.MaturedAt = &sub.MaturedAt
	}
	return resp
}

func toList(subs []models.Subscription, now time.Time) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toResponse(&subs[i], now))
	}
	return out
}

type OutcomeResponse struct {
	Holder       string `json:"holder"`
	ID           string `json:"id"`
	Matured      bool   `json:"matured"`
	UnitsMinted  string `json:"units_minted"`
	Error        string `json:"error,omitempty"`
	ErrorMessage string `json:"error_description,omitempty"`
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SubscribeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	sub, err := h.service.Subscribe(ctx, req.intent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(sub, requestcontext.Now(ctx)))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.service.Get(ctx, subID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub, requestcontext.Now(ctx)))
}

func (h *Handler) HandleMature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[MatureRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	sub, err := h.service.Mature(ctx, req.holder, subID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sub, requestcontext.Now(ctx)))
}

func (h *Handler) HandleMatureBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	outcomes := h.service.MatureBatch(ctx, req.refs)
	out := make([]OutcomeResponse, 0, len(outcomes))
	matured := 0
	for _, o := range outcomes {
		if o.Matured {
			matured++
		}
		out = append(out, OutcomeResponse{
			Holder:       o.Holder.String(),
			ID:           o.ID.String(),
			Matured:      o.Matured,
			UnitsMinted:  o.UnitsMinted.String(),
			Error:        o.Error,
			ErrorMessage: o.ErrorMessage,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"matured":  matured,
		"failed":   len(outcomes) - matured,
		"outcomes": out,
	})
}

func (h *Handler) HandleListByHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, err := id.ParseAddress(chi.URLParam(r, "holder"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subs, err := h.service.ListByHolder(ctx, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"subscriptions": toList(subs, requestcontext.Now(ctx))})
}

func (h *Handler) HandleDue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	subs, err := h.service.DueForMaturation(ctx, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"subscriptions": toList(subs, requestcontext.Now(ctx))})
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	remaining := st.ProgramCap.Sub(st.AllocatedUnits)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"subscriptions":     st.Subscriptions,
		"matured":           st.Matured,
		"allocated_units":   st.AllocatedUnits.String(),
		"matured_units":     st.MaturedUnits.String(),
		"program_cap_units": st.ProgramCap.String(),
		"remaining_units":   remaining.String(),
	})
}
