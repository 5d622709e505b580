package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/compliance/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// ProfileRequest is the body of PUT /compliance/profiles/{holder}.
type ProfileRequest struct {
	RestrictionLevel string `json:"restriction_level"`
	Jurisdiction     string `json:"jurisdiction"`
	RiskScore        int    `json:"risk_score"`
	Reason           string `json:"reason"`
	IsPEP            bool   `json:"is_pep"`
	HasAdverseMedia  bool   `json:"has_adverse_media"`

	parsed models.ProfileInput
}

func (r *ProfileRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ProfileRequest) Validate() error {
	level := models.RestrictionNone
	if r.RestrictionLevel != "" {
		var err error
		if level, err = models.ParseRestrictionLevel(r.RestrictionLevel); err != nil {
			return err
		}
	}
	var jurisdiction id.Jurisdiction
	if r.Jurisdiction != "" {
		var err error
		if jurisdiction, err = id.ParseJurisdiction(r.Jurisdiction); err != nil {
			return err
		}
	}
	if r.RiskScore < 0 || r.RiskScore > models.MaxRiskScore {
		return dErrors.New(dErrors.CodeValidation, "risk_score must be within [0, 1000]")
	}
	r.parsed = models.ProfileInput{
		RestrictionLevel: level,
		Jurisdiction:     jurisdiction,
		RiskScore:        r.RiskScore,
		Reason:           r.Reason,
		IsPEP:            r.IsPEP,
		HasAdverseMedia:  r.HasAdverseMedia,
	}
	return nil
}

type SanctionsRequest struct {
	List string `json:"list"`

	list models.SanctionsList
}

func (r *SanctionsRequest) Validate() error {
	var err error
	r.list, err = models.ParseSanctionsList(r.List)
	return err
}

type BlockRequest struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

func (r *BlockRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// ActionConfigRequest is the body of PUT /compliance/actions/{action}.
type ActionConfigRequest struct {
	Enabled                   bool     `json:"enabled"`
	RequireKYC                bool     `json:"require_kyc"`
	RequireSanctionsScreening bool     `json:"require_sanctions_screening"`
	MaxRestriction            string   `json:"max_restriction"`
	CooldownSeconds           int64    `json:"cooldown_seconds"`
	AllowedJurisdictions      []string `json:"allowed_jurisdictions"`
	Condition                 string   `json:"condition"`

	parsed models.ActionConfig
}

func (r *ActionConfigRequest) Validate() error {
	level := models.RestrictionNone
	if r.MaxRestriction != "" {
		var err error
		if level, err = models.ParseRestrictionLevel(r.MaxRestriction); err != nil {
			return err
		}
	}
	if r.CooldownSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "cooldown_seconds cannot be negative")
	}
	var allowed []id.Jurisdiction
	for _, j := range r.AllowedJurisdictions {
		code, err := id.ParseJurisdiction(j)
		if err != nil {
			return err
		}
		allowed = append(allowed, code)
	}
	r.parsed = models.ActionConfig{
		Enabled:                   r.Enabled,
		RequireKYC:                r.RequireKYC,
		RequireSanctionsScreening: r.RequireSanctionsScreening,
		MaxRestriction:            level,
		Cooldown:                  time.Duration(r.CooldownSeconds) * time.Second,
		AllowedJurisdictions:      allowed,
		Condition:                 r.Condition,
	}
	return nil
}

// RuleRequest is the body of PUT /compliance/jurisdictions/{code}.
type RuleRequest struct {
	Allowed              bool   `json:"allowed"`
	MaxParticipants      uint64 `json:"max_participants"`
	PerParticipantCapUSD string `json:"per_participant_cap_usd"`
	RequiresEnhancedKYC  bool   `json:"requires_enhanced_kyc"`

	cap decimal.Decimal
}

func (r *RuleRequest) Validate() error {
	if r.PerParticipantCapUSD == "" {
		r.cap = decimal.Zero
		return nil
	}
	var err error
	r.cap, err = id.ParseAmount(r.PerParticipantCapUSD)
	return err
}

type DecisionResponse struct {
	Holder  string `json:"holder"`
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

type ProfileResponse struct {
	Holder           string    `json:"holder"`
	RestrictionLevel string    `json:"restriction_level"`
	Jurisdiction     string    `json:"jurisdiction,omitempty"`
	RiskScore        int       `json:"risk_score"`
	SanctionsLists   []string  `json:"sanctions_lists"`
	IsPEP            bool      `json:"is_pep"`
	HasAdverseMedia  bool      `json:"has_adverse_media"`
	LastUpdated      time.Time `json:"last_updated"`
}

func toProfileResponse(p *models.Profile) ProfileResponse {
	lists := make([]string, 0, len(p.SanctionsLists))
	for _, l := range p.SanctionsLists {
		lists = append(lists, string(l))
	}
	return ProfileResponse{
		Holder:           p.Holder.String(),
		RestrictionLevel: p.RestrictionLevel.String(),
		Jurisdiction:     p.Jurisdiction.String(),
		RiskScore:        p.RiskScore,
		SanctionsLists:   lists,
		IsPEP:            p.IsPEP,
		HasAdverseMedia:  p.HasAdverseMedia,
		LastUpdated:      p.LastUpdated,
	}
}

type RuleResponse struct {
	Code                 string `json:"code"`
	Allowed              bool   `json:"allowed"`
	MaxParticipants      uint64 `json:"max_participants"`
	CurrentParticipants  uint64 `json:"current_participants"`
	PerParticipantCapUSD string `json:"per_participant_cap_usd"`
	RequiresEnhancedKYC  bool   `json:"requires_enhanced_kyc"`
}

func toRuleResponse(r *models.JurisdictionRule) RuleResponse {
	return RuleResponse{
		Code:                 r.Code.String(),
		Allowed:              r.Allowed,
		MaxParticipants:      r.MaxParticipants,
		CurrentParticipants:  r.CurrentParticipants,
		PerParticipantCapUSD: r.PerParticipantCapUSD.String(),
		RequiresEnhancedKYC:  r.RequiresEnhancedKYC,
	}
}
