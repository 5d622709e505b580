package domainerrors

import "net/http"

// Category groups codes by how a caller should react to them.
type Category string

const (
	// CategoryValidation: rejected before any mutation; retry with corrected input.
	CategoryValidation Category = "validation"
	// CategoryAuthorization: logged as a potential security event.
	CategoryAuthorization Category = "authorization"
	// CategoryStateConflict: idempotency guard; treat as already done.
	CategoryStateConflict Category = "state_conflict"
	// CategorySafetyGate: hard stop until an external state change.
	CategorySafetyGate Category = "safety_gate"
	// CategoryResource: hard stop pending funding or capacity.
	CategoryResource Category = "resource"
	CategoryInternal Category = "internal"
)

var categories = map[Code]Category{
	CodeBadRequest:              CategoryValidation,
	CodeValidation:              CategoryValidation,
	CodeInvalidInput:            CategoryValidation,
	CodeInvariantViolation:      CategoryValidation,
	CodeNotFound:                CategoryValidation,
	CodeJurisdictionNotApproved: CategoryValidation,
	CodeProviderNotApproved:     CategoryValidation,
	CodeBelowMinimum:            CategoryValidation,
	CodeAboveMaximum:            CategoryValidation,
	CodeRateOutOfBounds:         CategoryValidation,
	CodeProofExpired:            CategoryValidation,
	CodeStaleReport:             CategoryValidation,
	CodeStalePrice:              CategoryValidation,

	CodeUnauthorized:    CategoryAuthorization,
	CodeForbidden:       CategoryAuthorization,
	CodeUntrustedSigner: CategoryAuthorization,

	CodeConflict:          CategoryStateConflict,
	CodeDuplicateIdentity: CategoryStateConflict,
	CodeSessionReplay:     CategoryStateConflict,
	CodeIdentityRevoked:   CategoryStateConflict,
	CodeAlreadyExists:     CategoryStateConflict,
	CodeDocumentRevoked:   CategoryStateConflict,
	CodeReplayedProof:     CategoryStateConflict,
	CodeDocumentReplay:    CategoryStateConflict,
	CodeAlreadyMatured:    CategoryStateConflict,
	CodeAlreadyClaimed:    CategoryStateConflict,
	CodeUpkeepNotNeeded:   CategoryStateConflict,

	CodeCoverageBreached:  CategorySafetyGate,
	CodePaused:            CategorySafetyGate,
	CodeNotCompliant:      CategorySafetyGate,
	CodeCliffNotEnded:     CategorySafetyGate,
	CodeLockedByCliff:     CategorySafetyGate,
	CodeNotEligible:       CategorySafetyGate,
	CodeEpochNotFinalized: CategorySafetyGate,

	CodeInsufficientCredit:        CategoryResource,
	CodeInsufficientBalance:       CategoryResource,
	CodeInsufficientTreasuryFunds: CategoryResource,
	CodeCapacityExceeded:          CategoryResource,
	CodeInsufficientSources:       CategoryResource,
}

// CategoryOf returns the category of a code. Unknown codes are internal.
func CategoryOf(code Code) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryInternal
}

// ToHTTPStatus maps a code to the HTTP status returned by handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	}
	switch CategoryOf(code) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryAuthorization:
		return http.StatusForbidden
	case CategoryStateConflict:
		return http.StatusConflict
	case CategorySafetyGate:
		return http.StatusUnprocessableEntity
	case CategoryResource:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
