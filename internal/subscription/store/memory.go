// Package store persists subscriptions keyed by id, with a unique document
// hash per subscription.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/subscription/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.SubscriptionID]*models.Subscription
	documents map[id.Hash]id.SubscriptionID
	order     []id.SubscriptionID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[id.SubscriptionID]*models.Subscription),
		documents: make(map[id.Hash]id.SubscriptionID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sub.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.documents[sub.DocumentHash]; ok {
		return sentinel.ErrConflict
	}
	cp := *sub
	s.byID[sub.ID] = &cp
	s.documents[sub.DocumentHash] = sub.ID
	s.order = append(s.order, sub.ID)
	n := len(s.order) - 1
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.byID, cp.ID)
		delete(s.documents, cp.DocumentHash)
		s.order = slices.Delete(s.order, n, n+1)
	})
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemoryStore) DocumentUsed(_ context.Context, hash id.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.documents[hash]
	return ok, nil
}

// MarkMatured flips the matured flag. It fails with ErrConflict when the
// subscription already matured.
func (s *InMemoryStore) MarkMatured(ctx context.Context, subID id.SubscriptionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byID[subID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sub.Matured {
		return sentinel.ErrConflict
	}
	prev := *sub
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*sub = prev
	})
	sub.Matured = true
	sub.MaturedAt = at
	return nil
}

func (s *InMemoryStore) ListByHolder(_ context.Context, holder id.Address) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Subscription
	for _, subID := range s.order {
		if sub := s.byID[subID]; sub.Holder == holder {
			out = append(out, *sub)
		}
	}
	return out, nil
}

// ListDue returns unmatured subscriptions whose cliff ended at or before now,
// earliest cliff first.
func (s *InMemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Subscription
	for _, subID := range s.order {
		sub := s.byID[subID]
		if !sub.Matured && !now.Before(sub.CliffEndTime) {
			out = append(out, *sub)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Subscription) int { return a.CliffEndTime.Compare(b.CliffEndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) AllocatedUnits(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, sub := range s.byID {
		total = total.Add(sub.UnitsAllocated)
	}
	return total, nil
}

func (s *InMemoryStore) HolderDepositUSD(_ context.Context, holder id.Address) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, sub := range s.byID {
		if sub.Holder == holder {
			total = total.Add(sub.DepositUSD)
		}
	}
	return total, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &models.Stats{AllocatedUnits: decimal.Zero, MaturedUnits: decimal.Zero}
	for _, sub := range s.byID {
		st.Subscriptions++
		st.AllocatedUnits = st.AllocatedUnits.Add(sub.UnitsAllocated)
		if sub.Matured {
			st.Matured++
			st.MaturedUnits = st.MaturedUnits.Add(sub.UnitsAllocated)
		}
	}
	return st, nil
}
