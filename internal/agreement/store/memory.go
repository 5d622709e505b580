// Package store persists agreement records.
package store

import (
	"context"
	"sync"

	"aurum/internal/agreement/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.Hash]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.Hash]models.Record)}
}

func (s *InMemoryStore) Find(_ context.Context, hash id.Hash) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// Create inserts a new record; an existing hash yields sentinel.ErrConflict.
func (s *InMemoryStore) Create(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.DocumentHash]; ok {
		return sentinel.ErrConflict
	}
	tx.Restore(ctx, &s.mu, s.records, record.DocumentHash)
	s.records[record.DocumentHash] = *record
	return nil
}

func (s *InMemoryStore) MarkRevoked(ctx context.Context, hash id.Hash, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[hash]
	if !ok {
		return sentinel.ErrNotFound
	}
	tx.Restore(ctx, &s.mu, s.records, hash)
	r.Revoked = true
	r.RevokedReason = reason
	s.records[hash] = r
	return nil
}
