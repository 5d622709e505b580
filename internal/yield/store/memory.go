// Package store persists yield epochs, their eligibility snapshots and
// claims keyed by (epoch, holder).
package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/yield/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type claimKey struct {
	epoch  id.EpochNumber
	holder id.Address
}

type InMemoryStore struct {
	mu        sync.RWMutex
	epochs    map[id.EpochNumber]*models.Epoch
	latest    id.EpochNumber
	snapshots map[claimKey]decimal.Decimal
	claims    map[claimKey]*models.Claim
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		epochs:    make(map[id.EpochNumber]*models.Epoch),
		snapshots: make(map[claimKey]decimal.Decimal),
		claims:    make(map[claimKey]*models.Claim),
	}
}

func (s *InMemoryStore) CreateEpoch(ctx context.Context, e *models.Epoch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.epochs[e.Number]; ok {
		return sentinel.ErrConflict
	}
	latest := s.latest
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.epochs, e.Number)
		s.latest = latest
	})
	cp := *e
	s.epochs[e.Number] = &cp
	if e.Number > s.latest {
		s.latest = e.Number
	}
	return nil
}

func (s *InMemoryStore) FindEpoch(_ context.Context, n id.EpochNumber) (*models.Epoch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.epochs[n]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemoryStore) LatestEpoch(ctx context.Context) (*models.Epoch, error) {
	s.mu.RLock()
	n := s.latest
	s.mu.RUnlock()
	if n == 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.FindEpoch(ctx, n)
}

func (s *InMemoryStore) ListEpochs(_ context.Context) ([]models.Epoch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Epoch, 0, len(s.epochs))
	for _, e := range s.epochs {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b models.Epoch) int { return cmp.Compare(a.Number, b.Number) })
	return out, nil
}

// FinalizeEpoch stores the snapshot and flips the epoch to finalized. It
// fails with ErrConflict when the epoch is already finalized.
func (s *InMemoryStore) FinalizeEpoch(ctx context.Context, n id.EpochNumber, snapshot []models.Snapshot, supply decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.epochs[n]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.Finalized {
		return sentinel.ErrConflict
	}
	prev := *e
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		*e = prev
	})
	for _, snap := range snapshot {
		tx.Restore(ctx, &s.mu, s.snapshots, claimKey{n, snap.Holder})
		s.snapshots[claimKey{n, snap.Holder}] = snap.Basis
	}
	e.Finalized = true
	e.FinalizedAt = at
	e.EligibleSupplySnapshot = supply
	return nil
}

func (s *InMemoryStore) FindSnapshot(_ context.Context, n id.EpochNumber, holder id.Address) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	basis, ok := s.snapshots[claimKey{n, holder}]
	if !ok {
		return decimal.Zero, sentinel.ErrNotFound
	}
	return basis, nil
}

func (s *InMemoryStore) FindClaim(_ context.Context, n id.EpochNumber, holder id.Address) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimKey{n, holder}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// RecordClaim inserts the claim and adds its amount to the epoch total.
func (s *InMemoryStore) RecordClaim(ctx context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.epochs[c.Epoch]
	if !ok {
		return sentinel.ErrNotFound
	}
	key := claimKey{c.Epoch, c.Holder}
	if _, ok := s.claims[key]; ok {
		return sentinel.ErrConflict
	}
	total := e.TotalClaimed
	tx.Restore(ctx, &s.mu, s.claims, key)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		e.TotalClaimed = total
	})
	cp := *c
	s.claims[key] = &cp
	e.TotalClaimed = e.TotalClaimed.Add(c.Amount)
	return nil
}

func (s *InMemoryStore) ListClaims(_ context.Context, holder id.Address) ([]models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Claim
	for key, c := range s.claims {
		if key.holder == holder {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b models.Claim) int { return cmp.Compare(a.Epoch, b.Epoch) })
	return out, nil
}
