// Package store persists gold token accounts and allowances.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"aurum/internal/token/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type allowanceKey struct{ owner, spender id.Address }

type InMemoryStore struct {
	mu         sync.RWMutex
	accounts   map[id.Address]models.Account
	allowances map[allowanceKey]decimal.Decimal
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts:   make(map[id.Address]models.Account),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

func (s *InMemoryStore) FindAccount(_ context.Context, holder id.Address) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[holder]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemoryStore) SaveAccount(ctx context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.accounts, a.Holder)
	s.accounts[a.Holder] = *a
	return nil
}

// ListAccounts returns accounts with a positive balance ordered by holder.
func (s *InMemoryStore) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.Balance.IsPositive() {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Account) int {
		switch {
		case a.Holder < b.Holder:
			return -1
		case a.Holder > b.Holder:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InMemoryStore) TotalSupply(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, a := range s.accounts {
		total = total.Add(a.Balance)
	}
	return total, nil
}

func (s *InMemoryStore) FindAllowance(_ context.Context, owner, spender id.Address) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowances[allowanceKey{owner, spender}], nil
}

func (s *InMemoryStore) SaveAllowance(ctx context.Context, owner, spender id.Address, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.allowances, allowanceKey{owner, spender})
	if amount.IsZero() {
		delete(s.allowances, allowanceKey{owner, spender})
		return nil
	}
	s.allowances[allowanceKey{owner, spender}] = amount
	return nil
}
