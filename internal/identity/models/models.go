// Package models holds the identity registry's records: one KYC credential
// per holder, non-transferable, issued by a compliance officer.
package models

import (
	"strings"
	"time"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// KYCLevel is ordered: a higher level satisfies every lower requirement.
type KYCLevel int

const (
	KYCNone KYCLevel = iota
	KYCBasic
	KYCEnhanced
	KYCInstitutional
)

var kycLevelNames = []string{"None", "Basic", "Enhanced", "Institutional"}

func (l KYCLevel) String() string {
	if l < 0 || int(l) >= len(kycLevelNames) {
		return "Unknown"
	}
	return kycLevelNames[l]
}

// ParseKYCLevel accepts level names case-insensitively.
func ParseKYCLevel(s string) (KYCLevel, error) {
	for i, name := range kycLevelNames {
		if strings.EqualFold(s, name) {
			return KYCLevel(i), nil
		}
	}
	return KYCNone, dErrors.Newf(dErrors.CodeInvalidInput, "unknown kyc level %q", s)
}

type Accreditation int

const (
	AccreditationNone Accreditation = iota
	Accredited
	Professional
	EligibleCounterparty
)

var accreditationNames = []string{"None", "Accredited", "Professional", "EligibleCounterparty"}

func (a Accreditation) String() string {
	if a < 0 || int(a) >= len(accreditationNames) {
		return "Unknown"
	}
	return accreditationNames[a]
}

func ParseAccreditation(s string) (Accreditation, error) {
	for i, name := range accreditationNames {
		if strings.EqualFold(s, name) {
			return Accreditation(i), nil
		}
	}
	return AccreditationNone, dErrors.Newf(dErrors.CodeInvalidInput, "unknown accreditation %q", s)
}

// Record is a holder's identity credential.
//
// Invariants:
//   - at most one non-revoked record per holder
//   - KYCSessionID is never reused, even after revocation
//   - Revoked is one-way; expiry is derived from ExpiresAt, never stored
type Record struct {
	Holder        id.Address
	KYCProvider   string
	KYCSessionID  string
	KYCLevel      KYCLevel
	Accreditation Accreditation
	Jurisdiction  id.Jurisdiction
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Revoked       bool
	RevokedReason string
}

// Active reports whether the record has not been revoked. An expired record
// is still active: it blocks re-issuance until revoked or extended.
func (r *Record) Active() bool {
	return !r.Revoked
}

// IsValid reports whether the record authorizes gated actions at now.
func (r *Record) IsValid(now time.Time) bool {
	return !r.Revoked && !now.After(r.ExpiresAt)
}

// Expired is the derived expiry state.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Status renders the derived lifecycle state.
func (r *Record) Status(now time.Time) string {
	switch {
	case r.Revoked:
		return "revoked"
	case r.Expired(now):
		return "expired"
	default:
		return "valid"
	}
}

// AllowKind names an identity allow-list.
type AllowKind string

const (
	AllowProvider     AllowKind = "provider"
	AllowJurisdiction AllowKind = "jurisdiction"
)

// Stats are the registry counters: active (non-revoked) records, broken down
// by level and accreditation.
type Stats struct {
	Active          int
	ByLevel         map[KYCLevel]int
	ByAccreditation map[Accreditation]int
}

// IssueRequest carries the inputs to Service.Issue.
type IssueRequest struct {
	Holder        id.Address
	KYCProvider   string
	KYCSessionID  string
	KYCLevel      KYCLevel
	Accreditation Accreditation
	Jurisdiction  id.Jurisdiction
	// Validity is the credential lifetime; zero uses the registry default.
	Validity time.Duration
}
