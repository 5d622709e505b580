// Package models holds the compliance engine's profiles, per-action
// configuration and jurisdiction rules.
package models

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// RestrictionLevel is ordered from least to most restrictive.
type RestrictionLevel int

const (
	RestrictionNone RestrictionLevel = iota
	RestrictionMonitoring
	RestrictionRestricted
	RestrictionBlocked
)

var restrictionNames = []string{"None", "Monitoring", "Restricted", "Blocked"}

func (r RestrictionLevel) String() string {
	if r < 0 || int(r) >= len(restrictionNames) {
		return "Unknown"
	}
	return restrictionNames[r]
}

func ParseRestrictionLevel(s string) (RestrictionLevel, error) {
	for i, name := range restrictionNames {
		if strings.EqualFold(s, name) {
			return RestrictionLevel(i), nil
		}
	}
	return RestrictionNone, dErrors.Newf(dErrors.CodeInvalidInput, "unknown restriction level %q", s)
}

// SanctionsList names a sanctions regime a holder can be listed on.
type SanctionsList string

const (
	SanctionsOFAC SanctionsList = "OFAC"
	SanctionsUN   SanctionsList = "UN"
	SanctionsEU   SanctionsList = "EU"
	SanctionsUK   SanctionsList = "UK"
)

var sanctionsLists = []SanctionsList{SanctionsOFAC, SanctionsUN, SanctionsEU, SanctionsUK}

func ParseSanctionsList(s string) (SanctionsList, error) {
	l := SanctionsList(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(sanctionsLists, l) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown sanctions list %q", s)
	}
	return l, nil
}

// Action names a gated operation.
type Action string

const (
	ActionSubscribe Action = "SUBSCRIBE"
	ActionMature    Action = "MATURE"
	ActionTransfer  Action = "TRANSFER"
	ActionClaim     Action = "CLAIM"
)

// ParseAction upper-cases and validates an action name. Custom actions are
// allowed; the four built-ins are the ones the ledger gates.
func ParseAction(s string) (Action, error) {
	a := strings.ToUpper(strings.TrimSpace(s))
	if a == "" || len(a) > 32 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action must be 1-32 characters")
	}
	for _, c := range a {
		if (c < 'A' || c > 'Z') && c != '_' {
			return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid action %q", s)
		}
	}
	return Action(a), nil
}

// MaxRiskScore is the top of the risk scale.
const MaxRiskScore = 1000

// Profile is a holder's compliance screening result.
// Invariant: sanctions membership changes one list at a time.
type Profile struct {
	Holder           id.Address
	RestrictionLevel RestrictionLevel
	Jurisdiction     id.Jurisdiction
	RiskScore        int
	SanctionsLists   []SanctionsList
	IsPEP            bool
	HasAdverseMedia  bool
	Reason           string
	LastUpdated      time.Time
}

func (p *Profile) Sanctioned() bool {
	return len(p.SanctionsLists) > 0
}

// AddList adds l and reports whether membership changed.
func (p *Profile) AddList(l SanctionsList) bool {
	if slices.Contains(p.SanctionsLists, l) {
		return false
	}
	p.SanctionsLists = append(p.SanctionsLists, l)
	slices.Sort(p.SanctionsLists)
	return true
}

// RemoveList removes l and reports whether membership changed.
func (p *Profile) RemoveList(l SanctionsList) bool {
	i := slices.Index(p.SanctionsLists, l)
	if i < 0 {
		return false
	}
	p.SanctionsLists = slices.Delete(p.SanctionsLists, i, i+1)
	return true
}

// ProfileInput carries the fields a compliance officer sets on a profile.
type ProfileInput struct {
	Holder           id.Address
	RestrictionLevel RestrictionLevel
	Jurisdiction     id.Jurisdiction
	RiskScore        int
	Reason           string
	IsPEP            bool
	HasAdverseMedia  bool
}

// ActionConfig is the per-action gate configuration.
type ActionConfig struct {
	Action                    Action            `json:"action"`
	Enabled                   bool              `json:"enabled"`
	RequireKYC                bool              `json:"require_kyc"`
	RequireSanctionsScreening bool              `json:"require_sanctions_screening"`
	MaxRestriction            RestrictionLevel  `json:"max_restriction"`
	Cooldown                  time.Duration     `json:"cooldown"`
	AllowedJurisdictions      []id.Jurisdiction `json:"allowed_jurisdictions,omitempty"`
	Condition                 string            `json:"condition,omitempty"`
}

// JurisdictionRule limits participation from one jurisdiction.
// CurrentParticipants only ever increases.
type JurisdictionRule struct {
	Code                 id.Jurisdiction
	Allowed              bool
	MaxParticipants      uint64
	CurrentParticipants  uint64
	PerParticipantCapUSD decimal.Decimal
	RequiresEnhancedKYC  bool
}

// GlobalBlock places a holder on the global block list.
type GlobalBlock struct {
	Holder    id.Address
	Reason    string
	BlockedAt time.Time
}

// Reason identifies the first failing check of an evaluation.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonGlobalBlock            Reason = "global_block"
	ReasonActionDisabled         Reason = "action_disabled"
	ReasonKYCRequired            Reason = "kyc_required"
	ReasonKYCLevel               Reason = "kyc_level_insufficient"
	ReasonSanctionsUnscreened    Reason = "sanctions_unscreened"
	ReasonSanctioned             Reason = "sanctioned"
	ReasonRestrictionLevel       Reason = "restriction_level"
	ReasonJurisdictionProhibited Reason = "jurisdiction_prohibited"
	ReasonJurisdictionNotAllowed Reason = "jurisdiction_not_allowed"
	ReasonCooldown               Reason = "cooldown"
	ReasonCondition              Reason = "condition"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Holder  id.Address
	Action  Action
	Allowed bool
	Reason  Reason
	Detail  string
}

func Allow(holder id.Address, action Action) Decision {
	return Decision{Holder: holder, Action: action, Allowed: true}
}

func Deny(holder id.Address, action Action, reason Reason, detail string) Decision {
	return Decision{Holder: holder, Action: action, Reason: reason, Detail: detail}
}
