package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"aurum/internal/agreement/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Service is the agreement ledger as seen by HTTP.
type Service interface {
	Record(ctx context.Context, signer id.Address, hash id.Hash, locator, docType string) (*models.Record, error)
	Verify(ctx context.Context, hash id.Hash, locator string) (bool, error)
	Get(ctx context.Context, hash id.Hash) (*models.Record, error)
	Revoke(ctx context.Context, hash id.Hash, reason string) (*models.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/agreements", h.HandleRecord)
	r.Get("/agreements/{hash}", h.HandleGet)
	r.Get("/agreements/{hash}/verify", h.HandleVerify)
	r.Post("/agreements/{hash}/revoke", h.HandleRevoke)
}

// RecordRequest is the body of POST /agreements.
type RecordRequest struct {
	Signer       string `json:"signer"`
	DocumentHash string `json:"document_hash"`
	Locator      string `json:"locator"`
	DocType      string `json:"doc_type"`

	signer id.Address
	hash   id.Hash
}

func (r *RecordRequest) Validate() error {
	var err error
	if r.signer, err = id.ParseAddress(strings.TrimSpace(r.Signer)); err != nil {
		return err
	}
	if r.hash, err = id.ParseHash(strings.TrimSpace(r.DocumentHash)); err != nil {
		return err
	}
	return nil
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

func (r *RevokeRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type RecordResponse struct {
	DocumentHash  string    `json:"document_hash"`
	Locator       string    `json:"locator"`
	DocType       string    `json:"doc_type"`
	RecordedAt    time.Time `json:"recorded_at"`
	Signer        string    `json:"signer"`
	Notary        string    `json:"notary"`
	Revoked       bool      `json:"revoked"`
	RevokedReason string    `json:"revoked_reason,omitempty"`
}

func toRecordResponse(r *models.Record) RecordResponse {
	return RecordResponse{
		DocumentHash:  r.DocumentHash.String(),
		Locator:       r.Locator,
		DocType:       r.DocType,
		RecordedAt:    r.RecordedAt,
		Signer:        r.Signer.String(),
		Notary:        r.Notary.String(),
		Revoked:       r.Revoked,
		RevokedReason: r.RevokedReason,
	}
}

func hashParam(w http.ResponseWriter, r *http.Request) (id.Hash, bool) {
	hash, err := id.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.Hash{}, false
	}
	return hash, true
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.Record(ctx, req.signer, req.hash, req.Locator, req.DocType)
	if err != nil {
		h.logger.WarnContext(ctx, "agreement record failed",
			"request_id", requestID,
			"document_hash", req.hash.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRecordResponse(record))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	hash, ok := hashParam(w, r)
	if !ok {
		return
	}
	record, err := h.service.Get(r.Context(), hash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	hash, ok := hashParam(w, r)
	if !ok {
		return
	}
	locator := r.URL.Query().Get("locator")
	valid, err := h.service.Verify(r.Context(), hash, locator)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"document_hash": hash, "valid": valid})
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hash, ok := hashParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	record, err := h.service.Revoke(ctx, hash, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}
