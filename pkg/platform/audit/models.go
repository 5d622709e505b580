package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "aurum/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, Kafka topics and alerting.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Examples: identity issuance, subscriptions, minting, yield payouts.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: access denials, untrusted signers, emergency halts, coverage breaches.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for operational visibility.
	// Examples: reserve reports, aggregation rounds, keeper upkeep.
	CategoryOperations EventCategory = "operations"
)

// Event is an immutable, append-only record of a ledger state transition:
// who did what, when, to which entity, and the before/after state.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	Actor     id.Address
	Action    string
	// Entity names the kind of record touched ("holder", "subscription",
	// "epoch", "source", "document", "proof") and EntityID its key.
	Entity   string
	EntityID string
	Before   string
	After    string
	Reason   string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

type AuditEvent string

const (
	// Identity events
	EventIdentityIssued       AuditEvent = "identity_issued"
	EventIdentityRevoked      AuditEvent = "identity_revoked"
	EventIdentityExtended     AuditEvent = "identity_extended"
	EventIdentityLevelUpdated AuditEvent = "identity_level_updated"
	EventProviderApproved     AuditEvent = "kyc_provider_approved"
	EventProviderRemoved      AuditEvent = "kyc_provider_removed"
	EventJurisdictionApproved AuditEvent = "jurisdiction_approved"
	EventJurisdictionRemoved  AuditEvent = "jurisdiction_removed"

	// Compliance events
	EventProfileSet          AuditEvent = "compliance_profile_set"
	EventGlobalBlockSet      AuditEvent = "global_block_set"
	EventSanctionsListed     AuditEvent = "sanctions_listed"
	EventSanctionsDelisted   AuditEvent = "sanctions_delisted"
	EventActionConfigSet     AuditEvent = "action_config_set"
	EventJurisdictionRuleSet AuditEvent = "jurisdiction_rule_set"
	EventParticipantAdmitted AuditEvent = "participant_admitted"
	EventActionRecorded      AuditEvent = "compliance_action_recorded"
	EventActionNotRecorded   AuditEvent = "compliance_action_unrecorded"

	// Agreement events
	EventAgreementRecorded AuditEvent = "agreement_recorded"
	EventAgreementRevoked  AuditEvent = "agreement_revoked"

	// Coverage oracle events
	EventSourceRegistered    AuditEvent = "reserve_source_registered"
	EventSourceUpdated       AuditEvent = "reserve_source_updated"
	EventReportSubmitted     AuditEvent = "reserve_report_submitted"
	EventCoverageAggregated  AuditEvent = "coverage_aggregated"
	EventAggregationFailed   AuditEvent = "coverage_aggregation_failed"
	EventCoverageBreached    AuditEvent = "coverage_breached"
	EventEmergencyHalt       AuditEvent = "emergency_halt"
	EventEmergencyResume     AuditEvent = "emergency_resume"
	EventGuardPaused         AuditEvent = "guard_paused"
	EventGuardUnpaused       AuditEvent = "guard_unpaused"

	// Deposit events
	EventDepositCredited    AuditEvent = "deposit_credited"
	EventProofRejected      AuditEvent = "deposit_proof_rejected"
	EventCreditDebited      AuditEvent = "credit_debited"
	EventCreditWithdrawn    AuditEvent = "credit_withdrawn"
	EventWithdrawalReversed AuditEvent = "withdrawal_reversed"
	EventOperatorAdded      AuditEvent = "bridge_operator_added"
	EventOperatorRemoved    AuditEvent = "bridge_operator_removed"
	EventTokenConfigured    AuditEvent = "deposit_token_configured"

	// Subscription and token events
	EventSubscriptionCreated AuditEvent = "subscription_created"
	EventSubscriptionMatured AuditEvent = "subscription_matured"
	EventTokenMinted         AuditEvent = "token_minted"
	EventTokenTransferred    AuditEvent = "token_transferred"
	EventTokenApproved       AuditEvent = "token_approved"
	EventLockSet             AuditEvent = "transfer_lock_set"
	EventLockCleared         AuditEvent = "transfer_lock_cleared"

	// Yield events
	EventEpochStarted    AuditEvent = "yield_epoch_started"
	EventEpochFinalized  AuditEvent = "yield_epoch_finalized"
	EventYieldClaimed    AuditEvent = "yield_claimed"
	EventUpkeepPerformed AuditEvent = "yield_upkeep_performed"

	// Access events
	EventAccessDenied AuditEvent = "access_denied"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityIssued:       CategoryCompliance,
	EventIdentityRevoked:      CategoryCompliance,
	EventIdentityExtended:     CategoryCompliance,
	EventIdentityLevelUpdated: CategoryCompliance,
	EventProfileSet:           CategoryCompliance,
	EventGlobalBlockSet:       CategoryCompliance,
	EventSanctionsListed:      CategoryCompliance,
	EventSanctionsDelisted:    CategoryCompliance,
	EventJurisdictionRuleSet:  CategoryCompliance,
	EventParticipantAdmitted:  CategoryCompliance,
	EventAgreementRecorded:    CategoryCompliance,
	EventAgreementRevoked:     CategoryCompliance,
	EventDepositCredited:      CategoryCompliance,
	EventCreditDebited:        CategoryCompliance,
	EventCreditWithdrawn:      CategoryCompliance,
	EventWithdrawalReversed:   CategoryCompliance,
	EventSubscriptionCreated:  CategoryCompliance,
	EventSubscriptionMatured:  CategoryCompliance,
	EventTokenMinted:          CategoryCompliance,
	EventTokenTransferred:     CategoryCompliance,
	EventLockSet:              CategoryCompliance,
	EventLockCleared:          CategoryCompliance,
	EventEpochStarted:         CategoryCompliance,
	EventEpochFinalized:       CategoryCompliance,
	EventYieldClaimed:         CategoryCompliance,

	EventAccessDenied:      CategorySecurity,
	EventProofRejected:     CategorySecurity,
	EventCoverageBreached:  CategorySecurity,
	EventAggregationFailed: CategorySecurity,
	EventEmergencyHalt:     CategorySecurity,
	EventEmergencyResume:   CategorySecurity,
	EventGuardPaused:       CategorySecurity,
	EventGuardUnpaused:     CategorySecurity,
	EventOperatorAdded:     CategorySecurity,
	EventOperatorRemoved:   CategorySecurity,
	EventProviderApproved:  CategorySecurity,
	EventProviderRemoved:   CategorySecurity,

	EventJurisdictionApproved: CategoryOperations,
	EventJurisdictionRemoved:  CategoryOperations,
	EventActionConfigSet:      CategoryOperations,
	EventActionRecorded:       CategoryOperations,
	EventActionNotRecorded:    CategorySecurity,
	EventSourceRegistered:     CategoryOperations,
	EventSourceUpdated:        CategoryOperations,
	EventReportSubmitted:      CategoryOperations,
	EventCoverageAggregated:   CategoryOperations,
	EventTokenConfigured:      CategoryOperations,
	EventTokenApproved:        CategoryOperations,
	EventUpkeepPerformed:      CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
