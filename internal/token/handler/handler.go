package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"aurum/internal/token/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Service is the token ledger as seen by HTTP. Minting and locks are
// reserved to the subscription ledger and are not routed.
type Service interface {
	Transfer(ctx context.Context, to id.Address, amount decimal.Decimal) (*models.Transfer, error)
	TransferFrom(ctx context.Context, from, to id.Address, amount decimal.Decimal) (*models.Transfer, error)
	Approve(ctx context.Context, spender id.Address, amount decimal.Decimal) error
	Allowance(ctx context.Context, owner, spender id.Address) (decimal.Decimal, error)
	Account(ctx context.Context, holder id.Address) (*models.Account, error)
	TotalSupply(ctx context.Context) (decimal.Decimal, error)
	Holders(ctx context.Context) ([]models.Account, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/token/supply", h.HandleSupply)
	r.Get("/token/holders", h.HandleHolders)
	r.Get("/token/accounts/{holder}", h.HandleAccount)
	r.Get("/token/allowances/{owner}/{spender}", h.HandleAllowance)
	r.Post("/token/transfer", h.HandleTransfer)
	r.Post("/token/transfer-from", h.HandleTransferFrom)
	r.Post("/token/approve", h.HandleApprove)
}

type TransferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`

	from   id.Address
	to     id.Address
	amount decimal.Decimal
}

func (r *TransferRequest) Normalize() {
	r.From = strings.TrimSpace(r.From)
	r.To = strings.TrimSpace(r.To)
}

func (r *TransferRequest) Validate() error {
	var err error
	if r.From != "" {
		if r.from, err = id.ParseAddress(r.From); err != nil {
			return err
		}
	}
	if r.to, err = id.ParseAddress(r.To); err != nil {
		return err
	}
	if r.amount, err = id.ParseAmount(r.Amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid amount")
	}
	return nil
}

type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`

	spender id.Address
	amount  decimal.Decimal
}

func (r *ApproveRequest) Validate() error {
	var err error
	if r.spender, err = id.ParseAddress(strings.TrimSpace(r.Spender)); err != nil {
		return err
	}
	if r.amount, err = id.ParseAmount(r.Amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid amount")
	}
	return nil
}

type AccountResponse struct {
	Holder            string     `json:"holder"`
	Balance           string     `json:"balance"`
	TransferLockUntil *time.Time `json:"transfer_lock_until,omitempty"`
	Locked            bool       `json:"locked"`
}

func toAccountResponse(a *models.Account, now time.Time) AccountResponse {
	resp := AccountResponse{
		Holder:  a.Holder.String(),
		Balance: a.Balance.String(),
		Locked:  a.Locked(now),
	}
	if !a.TransferLockUntil.IsZero() {
		resp.TransferLockUntil = &a.TransferLockUntil
	}
	return resp
}

type TransferResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func addressParam(w http.ResponseWriter, r *http.Request, key string) (id.Address, bool) {
	addr, err := id.ParseAddress(chi.URLParam(r, key))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return addr, true
}

func (h *Handler) HandleSupply(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"total_supply": total.String()})
}

func (h *Handler) HandleHolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := h.service.Holders(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i], now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"holders": out})
}

func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return
	}
	a, err := h.service.Account(ctx, holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccountResponse(a, requestcontext.Now(ctx)))
}

func (h *Handler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, ok := addressParam(w, r, "owner")
	if !ok {
		return
	}
	spender, ok := addressParam(w, r, "spender")
	if !ok {
		return
	}
	amount, err := h.service.Allowance(r.Context(), owner, spender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"owner":   owner.String(),
		"spender": spender.String(),
		"amount":  amount.String(),
	})
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	t, err := h.service.Transfer(ctx, req.to, req.amount)
	h.writeTransfer(w, t, err)
}

func (h *Handler) HandleTransferFrom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.from.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "from is required"))
		return
	}
	t, err := h.service.TransferFrom(ctx, req.from, req.to, req.amount)
	h.writeTransfer(w, t, err)
}

func (h *Handler) writeTransfer(w http.ResponseWriter, t *models.Transfer, err error) {
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TransferResponse{
		From:   t.From.String(),
		To:     t.To.String(),
		Amount: t.Amount.String(),
	})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.Approve(ctx, req.spender, req.amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"spender": req.spender.String(),
		"amount":  req.amount.String(),
	})
}
