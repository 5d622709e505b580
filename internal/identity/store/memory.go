// Package store holds the identity registry's in-memory and PostgreSQL stores.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"aurum/internal/identity/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

// InMemoryStore keeps identity state in process memory. Records are copied
// on the way in and out so callers never alias stored state.
type InMemoryStore struct {
	mu       sync.RWMutex
	records  map[id.Address]models.Record
	sessions map[string]id.Address
	allowed  map[models.AllowKind]map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[id.Address]models.Record),
		sessions: make(map[string]id.Address),
		allowed: map[models.AllowKind]map[string]struct{}{
			models.AllowProvider:     {},
			models.AllowJurisdiction: {},
		},
	}
}

func (s *InMemoryStore) FindByHolder(_ context.Context, holder id.Address) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[holder]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryStore) Save(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.records, record.Holder)
	s.records[record.Holder] = *record
	return nil
}

func (s *InMemoryStore) SessionUsed(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *InMemoryStore) MarkSessionUsed(ctx context.Context, sessionID string, holder id.Address, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	tx.Restore(ctx, &s.mu, s.sessions, sessionID)
	s.sessions[sessionID] = holder
	return nil
}

func (s *InMemoryStore) IsApproved(_ context.Context, kind models.AllowKind, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allowed[kind][value]
	return ok, nil
}

func (s *InMemoryStore) Approve(ctx context.Context, kind models.AllowKind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.allowed[kind]
	if !ok {
		return sentinel.ErrInvalidState
	}
	tx.Restore(ctx, &s.mu, set, value)
	set[value] = struct{}{}
	return nil
}

func (s *InMemoryStore) Remove(ctx context.Context, kind models.AllowKind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.allowed[kind]
	if !ok {
		return nil
	}
	tx.Restore(ctx, &s.mu, set, value)
	delete(set, value)
	return nil
}

func (s *InMemoryStore) ListApproved(_ context.Context, kind models.AllowKind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.allowed[kind]))
	for v := range s.allowed[kind] {
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := models.Stats{
		ByLevel:         make(map[models.KYCLevel]int),
		ByAccreditation: make(map[models.Accreditation]int),
	}
	for _, r := range s.records {
		if !r.Active() {
			continue
		}
		stats.Active++
		stats.ByLevel[r.KYCLevel]++
		stats.ByAccreditation[r.Accreditation]++
	}
	return stats, nil
}
