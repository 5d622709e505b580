package handler

import (
	"strings"
	"time"

	"aurum/internal/identity/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// IssueRequest is the body of POST /identities.
type IssueRequest struct {
	Holder          string `json:"holder"`
	KYCProvider     string `json:"kyc_provider"`
	KYCSessionID    string `json:"kyc_session_id"`
	KYCLevel        string `json:"kyc_level"`
	Accreditation   string `json:"accreditation"`
	Jurisdiction    string `json:"jurisdiction"`
	ValiditySeconds int64  `json:"validity_seconds"`

	parsed models.IssueRequest
}

func (r *IssueRequest) Normalize() {
	r.Holder = strings.TrimSpace(r.Holder)
	r.KYCProvider = strings.TrimSpace(r.KYCProvider)
	r.KYCSessionID = strings.TrimSpace(r.KYCSessionID)
}

func (r *IssueRequest) Validate() error {
	holder, err := id.ParseAddress(r.Holder)
	if err != nil {
		return err
	}
	level, err := models.ParseKYCLevel(r.KYCLevel)
	if err != nil {
		return err
	}
	accreditation := models.AccreditationNone
	if r.Accreditation != "" {
		if accreditation, err = models.ParseAccreditation(r.Accreditation); err != nil {
			return err
		}
	}
	jurisdiction, err := id.ParseJurisdiction(r.Jurisdiction)
	if err != nil {
		return err
	}
	if r.ValiditySeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "validity_seconds cannot be negative")
	}
	r.parsed = models.IssueRequest{
		Holder:        holder,
		KYCProvider:   r.KYCProvider,
		KYCSessionID:  r.KYCSessionID,
		KYCLevel:      level,
		Accreditation: accreditation,
		Jurisdiction:  jurisdiction,
		Validity:      time.Duration(r.ValiditySeconds) * time.Second,
	}
	return nil
}

// ReasonRequest is the body of revocation endpoints.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type ExtendRequest struct {
	ExtraSeconds int64 `json:"extra_seconds"`
}

func (r *ExtendRequest) Validate() error {
	if r.ExtraSeconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "extra_seconds must be positive")
	}
	return nil
}

type LevelRequest struct {
	KYCLevel      string `json:"kyc_level"`
	Accreditation string `json:"accreditation"`

	level         models.KYCLevel
	accreditation models.Accreditation
}

func (r *LevelRequest) Validate() error {
	var err error
	if r.level, err = models.ParseKYCLevel(r.KYCLevel); err != nil {
		return err
	}
	if r.accreditation, err = models.ParseAccreditation(r.Accreditation); err != nil {
		return err
	}
	return nil
}

type AllowRequest struct {
	Value string `json:"value"`
}

func (r *AllowRequest) Validate() error {
	r.Value = strings.TrimSpace(r.Value)
	if r.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "value is required")
	}
	return nil
}

// RecordResponse renders an identity record.
type RecordResponse struct {
	Holder        string    `json:"holder"`
	KYCProvider   string    `json:"kyc_provider"`
	KYCLevel      string    `json:"kyc_level"`
	Accreditation string    `json:"accreditation"`
	Jurisdiction  string    `json:"jurisdiction"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Status        string    `json:"status"`
	RevokedReason string    `json:"revoked_reason,omitempty"`
}

func toRecordResponse(r *models.Record, now time.Time) RecordResponse {
	return RecordResponse{
		Holder:        r.Holder.String(),
		KYCProvider:   r.KYCProvider,
		KYCLevel:      r.KYCLevel.String(),
		Accreditation: r.Accreditation.String(),
		Jurisdiction:  r.Jurisdiction.String(),
		IssuedAt:      r.IssuedAt,
		ExpiresAt:     r.ExpiresAt,
		Status:        r.Status(now),
		RevokedReason: r.RevokedReason,
	}
}

type StatsResponse struct {
	Active          int            `json:"active"`
	ByLevel         map[string]int `json:"by_level"`
	ByAccreditation map[string]int `json:"by_accreditation"`
}
