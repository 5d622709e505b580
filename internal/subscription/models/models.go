// Package models holds subscription records and their lifecycle state.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

type LockMode string

const (
	LockStandard     LockMode = "Standard"
	LockExtendedHold LockMode = "ExtendedHold"
)

// ParseLockMode accepts the mode names case-insensitively. An empty string is
// Standard.
func ParseLockMode(s string) (LockMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return LockStandard, nil
	case "extendedhold", "extended_hold":
		return LockExtendedHold, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown lock mode %q", s)
}

// State is derived from the clock and the matured flag; it is never stored.
type State string

const (
	StateCreated   State = "Created"
	StateMaturable State = "Maturable"
	StateMatured   State = "Matured"
)

type Subscription struct {
	ID                  id.SubscriptionID
	Holder              id.Address
	DepositUSD          decimal.Decimal
	EntryPriceUSD       decimal.Decimal
	UnitsAllocated      decimal.Decimal
	LockMode            LockMode
	CliffEndTime        time.Time
	ExtendedHoldEndTime time.Time // zero unless LockMode is ExtendedHold
	DocumentHash        id.Hash
	Matured             bool
	MaturedAt           time.Time
	SubscriptionTime    time.Time
}

func (s *Subscription) State(now time.Time) State {
	switch {
	case s.Matured:
		return StateMatured
	case !now.Before(s.CliffEndTime):
		return StateMaturable
	default:
		return StateCreated
	}
}

// Intent is a holder's request to subscribe.
type Intent struct {
	Holder          id.Address
	USDAmount       decimal.Decimal
	LockMode        LockMode
	DocumentHash    id.Hash
	DocumentLocator string
	DocType         string
}

// MaturationRef names one subscription of a batch.
type MaturationRef struct {
	Holder id.Address
	ID     id.SubscriptionID
}

// MaturationOutcome is the per-item result of a batch maturation. Error is
// the failure code, empty on success.
type MaturationOutcome struct {
	Holder       id.Address
	ID           id.SubscriptionID
	Matured      bool
	UnitsMinted  decimal.Decimal
	Error        string
	ErrorMessage string
}

// Stats reports program capacity usage.
type Stats struct {
	Subscriptions  int             `json:"subscriptions"`
	Matured        int             `json:"matured"`
	AllocatedUnits decimal.Decimal `json:"allocated_units"`
	MaturedUnits   decimal.Decimal `json:"matured_units"`
	ProgramCap     decimal.Decimal `json:"program_cap_units"`
}
