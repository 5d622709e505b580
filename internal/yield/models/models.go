// Package models holds yield epochs, per-holder basis snapshots and claims.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// BasisPolicy selects what a holder's yield is computed on.
type BasisPolicy string

const (
	// BasisTokenHoldings uses the holder's gold token balance.
	BasisTokenHoldings BasisPolicy = "token_holdings"
	// BasisAllocatedUnits uses the units of the holder's matured subscriptions.
	BasisAllocatedUnits BasisPolicy = "allocated_units"
)

func ParseBasisPolicy(s string) (BasisPolicy, error) {
	switch BasisPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BasisTokenHoldings:
		return BasisTokenHoldings, nil
	case BasisAllocatedUnits:
		return BasisAllocatedUnits, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown yield basis policy %q", s)
}

// Epoch moves Open -> Finalized once. EligibleSupplySnapshot is set at
// finalization.
type Epoch struct {
	Number                 id.EpochNumber
	StartTime              time.Time
	EndTime                time.Time
	RateBps                int64
	EligibleSupplySnapshot decimal.Decimal
	TotalClaimed           decimal.Decimal
	Finalized              bool
	FinalizedAt            time.Time
}

// Payout is floor(basis * rate / 10000).
func (e *Epoch) Payout(basis decimal.Decimal) decimal.Decimal {
	return id.ApplyBps(basis, e.RateBps)
}

// Snapshot is one eligible holder's basis captured when an epoch finalized.
type Snapshot struct {
	Epoch  id.EpochNumber
	Holder id.Address
	Basis  decimal.Decimal
}

// Claim is keyed by (Epoch, Holder). A zero Amount records a no-op claim.
type Claim struct {
	Epoch     id.EpochNumber
	Holder    id.Address
	Amount    decimal.Decimal
	ClaimedAt time.Time
}

// Skipped is an epoch left out of a multi-epoch claim, with the code of the
// reason.
type Skipped struct {
	Epoch  id.EpochNumber
	Reason dErrors.Code
}

// MultiClaim is the result of claiming several epochs with one transfer.
type MultiClaim struct {
	Holder  id.Address
	Claims  []Claim
	Skipped []Skipped
	Total   decimal.Decimal
}

// UpkeepStatus describes the keeper trigger window for the next epoch.
type UpkeepStatus struct {
	Needed       bool
	CurrentEpoch id.EpochNumber
	ScheduledAt  time.Time
	WindowEnd    time.Time
}
