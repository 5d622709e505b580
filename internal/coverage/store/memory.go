// Package store persists reserve sources, reports, aggregates and the daily
// coverage series.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"aurum/internal/coverage/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	sources    map[id.SourceID]models.Source
	latest     map[id.SourceID]models.Report
	reports    []models.Report
	aggregates []models.Aggregate
	daily      map[time.Time]models.DailySnapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sources: make(map[id.SourceID]models.Source),
		latest:  make(map[id.SourceID]models.Report),
		daily:   make(map[time.Time]models.DailySnapshot),
	}
}

func (s *InMemoryStore) FindSource(_ context.Context, sourceID id.SourceID) (*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[sourceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &src, nil
}

func (s *InMemoryStore) SaveSource(ctx context.Context, src *models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.sources, src.ID)
	s.sources[src.ID] = *src
	return nil
}

func (s *InMemoryStore) ListSources(_ context.Context) ([]models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	slices.SortFunc(out, func(a, b models.Source) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out, nil
}

func (s *InMemoryStore) LatestReport(_ context.Context, sourceID id.SourceID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.latest[sourceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryStore) AppendReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.reports)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.reports = s.reports[:n]
	})
	tx.Restore(ctx, &s.mu, s.latest, r.SourceID)
	s.reports = append(s.reports, *r)
	s.latest[r.SourceID] = *r
	return nil
}

func (s *InMemoryStore) LatestAggregate(_ context.Context) (*models.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.aggregates) == 0 {
		return nil, sentinel.ErrNotFound
	}
	a := s.aggregates[len(s.aggregates)-1]
	a.Excluded = slices.Clone(a.Excluded)
	return &a, nil
}

func (s *InMemoryStore) AppendAggregate(ctx context.Context, a *models.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.aggregates)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.aggregates = s.aggregates[:n]
	})
	c := *a
	c.Excluded = slices.Clone(a.Excluded)
	s.aggregates = append(s.aggregates, c)
	return nil
}

func (s *InMemoryStore) UpsertDaily(ctx context.Context, snap *models.DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.daily, snap.Day)
	s.daily[snap.Day] = *snap
	return nil
}

// ListDaily returns snapshots with from <= day <= to in day order.
func (s *InMemoryStore) ListDaily(_ context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DailySnapshot
	for day, snap := range s.daily {
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, snap)
	}
	slices.SortFunc(out, func(a, b models.DailySnapshot) int { return a.Day.Compare(b.Day) })
	return out, nil
}
