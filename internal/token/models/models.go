// Package models holds gold token accounts. One token unit is one allocated
// subscription unit.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
)

// Account is a holder's token balance and post-maturation transfer lock.
// A zero TransferLockUntil means unlocked.
type Account struct {
	Holder            id.Address
	Balance           decimal.Decimal
	TransferLockUntil time.Time
}

// EmptyAccount is the account of a holder that never held tokens.
func EmptyAccount(holder id.Address) *Account {
	return &Account{Holder: holder, Balance: decimal.Zero}
}

// Locked reports whether outgoing transfers are blocked at now.
func (a *Account) Locked(now time.Time) bool {
	return now.Before(a.TransferLockUntil)
}

// Transfer is the outcome of a successful transfer.
type Transfer struct {
	From   id.Address
	To     id.Address
	Amount decimal.Decimal
}
