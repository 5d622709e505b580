// Package domainerrors carries typed error codes from the domain layer to the
// transport layer. Services return *Error values; handlers translate the code
// into a status and a stable machine-readable identifier.
//
// Every error should name the entity it concerns (holder, subscription, epoch,
// source, proof) in its message so the audit trail can be reconstructed from
// logs alone.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure mode. Values are stable and exposed on the wire.
type Code string

// Generic codes shared by every module.
const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Identity registry.
const (
	CodeDuplicateIdentity       Code = "duplicate_identity"
	CodeSessionReplay           Code = "session_replay"
	CodeJurisdictionNotApproved Code = "jurisdiction_not_approved"
	CodeProviderNotApproved     Code = "provider_not_approved"
	CodeIdentityRevoked         Code = "identity_revoked"
)

// Agreement ledger.
const (
	CodeAlreadyExists   Code = "already_exists"
	CodeDocumentRevoked Code = "document_revoked"
)

// Coverage oracle and circuit breaker.
const (
	CodeInsufficientSources Code = "insufficient_sources"
	CodeStaleReport         Code = "stale_report"
	CodeCoverageBreached    Code = "coverage_breached"
	CodePaused              Code = "paused"
)

// Deposit router.
const (
	CodeReplayedProof      Code = "replayed_proof"
	CodeProofExpired       Code = "proof_expired"
	CodeUntrustedSigner    Code = "untrusted_signer"
	CodeBelowMinimum       Code = "below_minimum"
	CodeAboveMaximum       Code = "above_maximum"
	CodeInsufficientCredit Code = "insufficient_credit"
	CodeStalePrice         Code = "stale_price"
)

// Subscription ledger and token.
const (
	CodeNotCompliant        Code = "not_compliant"
	CodeCapacityExceeded    Code = "capacity_exceeded"
	CodeDocumentReplay      Code = "document_replay"
	CodeAlreadyMatured      Code = "already_matured"
	CodeCliffNotEnded       Code = "cliff_not_ended"
	CodeLockedByCliff       Code = "locked_by_cliff"
	CodeInsufficientBalance Code = "insufficient_balance"
)

// Yield distributor.
const (
	CodeRateOutOfBounds           Code = "rate_out_of_bounds"
	CodeNotEligible               Code = "not_eligible"
	CodeEpochNotFinalized         Code = "epoch_not_finalized"
	CodeAlreadyClaimed            Code = "already_claimed"
	CodeInsufficientTreasuryFunds Code = "insufficient_treasury_funds"
	CodeUpkeepNotNeeded           Code = "upkeep_not_needed"
)

// Error is a domain error with a code, a human-readable message and an
// optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given code.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any *Error in the chain carries code. A revoked
// document error wrapping an already-exists error therefore matches both.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
