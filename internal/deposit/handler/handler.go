package handler

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"aurum/internal/deposit/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Service is the deposit router as seen by HTTP.
type Service interface {
	SubmitProof(ctx context.Context, p *models.Proof) (*models.Receipt, error)
	IsProcessed(ctx context.Context, hash id.Hash) (bool, error)
	Credit(ctx context.Context, holder id.Address) (*models.Credit, error)
	WithdrawCredit(ctx context.Context, holder id.Address, amount decimal.Decimal, targetToken string) (*models.Credit, error)
	AddOperator(ctx context.Context, op models.Operator) error
	RemoveOperator(ctx context.Context, addr id.Address) error
	ListOperators(ctx context.Context) ([]models.Operator, error)
	ConfigureToken(ctx context.Context, cfg models.TokenConfig) (*models.TokenConfig, error)
	ListTokens(ctx context.Context) ([]models.TokenConfig, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/deposits/proofs", h.HandleSubmitProof)
	r.Get("/deposits/proofs/{hash}", h.HandleProofStatus)
	r.Get("/deposits/credits/{holder}", h.HandleGetCredit)
	r.Post("/deposits/credits/{holder}/withdraw", h.HandleWithdraw)
	r.Get("/deposits/operators", h.HandleListOperators)
	r.Post("/deposits/operators", h.HandleAddOperator)
	r.Delete("/deposits/operators/{address}", h.HandleRemoveOperator)
	r.Get("/deposits/tokens", h.HandleListTokens)
	r.Put("/deposits/tokens", h.HandleConfigureToken)
}

// ProofRequest carries amounts as integer strings in base units.
type ProofRequest struct {
	Holder            string    `json:"holder"`
	SourceChain       string    `json:"source_chain"`
	SourceTxHash      string    `json:"source_tx_hash"`
	SourceToken       string    `json:"source_token"`
	SourceAmount      string    `json:"source_amount"`
	USDAmount         string    `json:"usd_amount"`
	Nonce             uint64    `json:"nonce"`
	Timestamp         time.Time `json:"timestamp"`
	OperatorSignature string    `json:"operator_signature"`

	proof models.Proof
}

func (r *ProofRequest) Normalize() {
	r.Holder = strings.TrimSpace(r.Holder)
	r.SourceChain = strings.TrimSpace(r.SourceChain)
	r.SourceToken = strings.TrimSpace(r.SourceToken)
	r.SourceTxHash = strings.TrimSpace(r.SourceTxHash)
	r.OperatorSignature = strings.TrimSpace(r.OperatorSignature)
	if r.USDAmount == "" {
		r.USDAmount = "0"
	}
}

func (r *ProofRequest) Validate() error {
	holder, err := id.ParseAddress(r.Holder)
	if err != nil {
		return err
	}
	sourceAmount, err := id.ParseAmount(r.SourceAmount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid source_amount")
	}
	usdAmount, err := id.ParseAmount(r.USDAmount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid usd_amount")
	}
	if r.Timestamp.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "timestamp is required")
	}
	if r.OperatorSignature == "" {
		return dErrors.New(dErrors.CodeValidation, "operator_signature is required")
	}
	r.proof = models.Proof{
		Holder:            holder,
		SourceChain:       r.SourceChain,
		SourceTxHash:      r.SourceTxHash,
		SourceToken:       r.SourceToken,
		SourceAmount:      sourceAmount,
		USDAmount:         usdAmount,
		Nonce:             r.Nonce,
		Timestamp:         r.Timestamp.UTC(),
		OperatorSignature: r.OperatorSignature,
	}
	return nil
}

type WithdrawRequest struct {
	Amount      string `json:"amount"`
	TargetToken string `json:"target_token"`

	amount decimal.Decimal
}

func (r *WithdrawRequest) Normalize() {
	r.TargetToken = strings.ToUpper(strings.TrimSpace(r.TargetToken))
}

func (r *WithdrawRequest) Validate() error {
	var err error
	if r.amount, err = id.ParseAmount(r.Amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid amount")
	}
	if r.TargetToken == "" {
		return dErrors.New(dErrors.CodeValidation, "target_token is required")
	}
	return nil
}

// OperatorRequest carries a base64 encoded ed25519 public key.
type OperatorRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`

	operator models.Operator
}

func (r *OperatorRequest) Validate() error {
	addr, err := id.ParseAddress(strings.TrimSpace(r.Address))
	if err != nil {
		return err
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.PublicKey))
	if err != nil || len(key) != ed25519.PublicKeySize {
		return dErrors.New(dErrors.CodeValidation, "public_key must be a base64 ed25519 key")
	}
	r.operator = models.Operator{Address: addr, PublicKey: ed25519.PublicKey(key)}
	return nil
}

type TokenRequest struct {
	Chain  string `json:"chain"`
	Token  string `json:"token"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	Stable bool   `json:"stable"`

	cfg models.TokenConfig
}

func (r *TokenRequest) Normalize() {
	if r.Min == "" {
		r.Min = "0"
	}
	if r.Max == "" {
		r.Max = "0"
	}
}

func (r *TokenRequest) Validate() error {
	lo, err := id.ParseAmount(r.Min)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid min")
	}
	hi, err := id.ParseAmount(r.Max)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid max")
	}
	r.cfg = models.TokenConfig{Chain: r.Chain, Token: r.Token, Min: lo, Max: hi, Stable: r.Stable}
	return nil
}

type ReceiptResponse struct {
	ProofHash   string `json:"proof_hash"`
	Holder      string `json:"holder"`
	Signer      string `json:"signer"`
	GrossUSD    string `json:"gross_usd"`
	FeeUSD      string `json:"fee_usd"`
	CreditedUSD string `json:"credited_usd"`
	Balance     string `json:"balance"`
}

type CreditResponse struct {
	Holder     string            `json:"holder"`
	AmountUSD  string            `json:"amount_usd"`
	Provenance map[string]string `json:"provenance"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
}

func toCreditResponse(c *models.Credit) CreditResponse {
	prov := make(map[string]string, len(c.Provenance))
	for chain, usd := range c.Provenance {
		prov[chain] = usd.String()
	}
	resp := CreditResponse{
		Holder:     c.Holder.String(),
		AmountUSD:  c.AmountUSD.String(),
		Provenance: prov,
	}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = &c.UpdatedAt
	}
	return resp
}

type OperatorResponse struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

type TokenResponse struct {
	Chain  string `json:"chain"`
	Token  string `json:"token"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	Stable bool   `json:"stable"`
}

func toTokenResponse(cfg *models.TokenConfig) TokenResponse {
	return TokenResponse{
		Chain:  cfg.Chain,
		Token:  cfg.Token,
		Min:    cfg.Min.String(),
		Max:    cfg.Max.String(),
		Stable: cfg.Stable,
	}
}

func addressParam(w http.ResponseWriter, r *http.Request, key string) (id.Address, bool) {
	addr, err := id.ParseAddress(chi.URLParam(r, key))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return addr, true
}

func (h *Handler) HandleSubmitProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ProofRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	receipt, err := h.service.SubmitProof(ctx, &req.proof)
	if err != nil {
		h.logger.InfoContext(ctx, "deposit proof rejected",
			"request_id", requestID,
			"holder", req.Holder,
			"code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ReceiptResponse{
		ProofHash:   receipt.ProofHash.String(),
		Holder:      receipt.Holder.String(),
		Signer:      receipt.Signer.String(),
		GrossUSD:    receipt.GrossUSD.String(),
		FeeUSD:      receipt.FeeUSD.String(),
		CreditedUSD: receipt.CreditedUSD.String(),
		Balance:     receipt.Balance.String(),
	})
}

func (h *Handler) HandleProofStatus(w http.ResponseWriter, r *http.Request) {
	hash, err := id.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	processed, err := h.service.IsProcessed(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"proof_hash": hash.String(), "processed": processed})
}

func (h *Handler) HandleGetCredit(w http.ResponseWriter, r *http.Request) {
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return
	}
	c, err := h.service.Credit(r.Context(), holder)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCreditResponse(c))
}

func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder, ok := addressParam(w, r, "holder")
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[WithdrawRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.WithdrawCredit(ctx, holder, req.amount, req.TargetToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCreditResponse(c))
}

func (h *Handler) HandleListOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := h.service.ListOperators(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]OperatorResponse, 0, len(ops))
	for _, op := range ops {
		out = append(out, OperatorResponse{
			Address:   op.Address.String(),
			PublicKey: base64.StdEncoding.EncodeToString(op.PublicKey),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"operators": out})
}

func (h *Handler) HandleAddOperator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[OperatorRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.AddOperator(ctx, req.operator); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, OperatorResponse{
		Address:   req.operator.Address.String(),
		PublicKey: base64.StdEncoding.EncodeToString(req.operator.PublicKey),
	})
}

func (h *Handler) HandleRemoveOperator(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	if err := h.service.RemoveOperator(r.Context(), addr); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.ListTokens(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]TokenResponse, 0, len(tokens))
	for i := range tokens {
		out = append(out, toTokenResponse(&tokens[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

func (h *Handler) HandleConfigureToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cfg, err := h.service.ConfigureToken(ctx, req.cfg)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTokenResponse(cfg))
}
