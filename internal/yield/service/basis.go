package service

import (
	"context"

	"github.com/shopspring/decimal"

	submodels "aurum/internal/subscription/models"
	tokenmodels "aurum/internal/token/models"
	"aurum/internal/yield/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// Allocations reads the subscription ledger for the allocated_units policy.
type Allocations interface {
	ListByHolder(ctx context.Context, holder id.Address) ([]submodels.Subscription, error)
}

type basis interface {
	of(ctx context.Context, acct *tokenmodels.Account) (decimal.Decimal, error)
}

func newBasis(policy models.BasisPolicy, deps Dependencies) basis {
	if policy == models.BasisAllocatedUnits {
		return allocatedUnits{subs: deps.Allocations}
	}
	return tokenHoldings{}
}

type tokenHoldings struct{}

func (tokenHoldings) of(_ context.Context, acct *tokenmodels.Account) (decimal.Decimal, error) {
	return acct.Balance, nil
}

// allocatedUnits counts the units of matured subscriptions, so transfers
// after maturation do not move yield between holders.
type allocatedUnits struct {
	subs Allocations
}

func (a allocatedUnits) of(ctx context.Context, acct *tokenmodels.Account) (decimal.Decimal, error) {
	subs, err := a.subs.ListByHolder(ctx, acct.Holder)
	if err != nil {
		return decimal.Zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read allocations")
	}
	total := decimal.Zero
	for _, sub := range subs {
		if sub.Matured {
			total = total.Add(sub.UnitsAllocated)
		}
	}
	return total, nil
}
