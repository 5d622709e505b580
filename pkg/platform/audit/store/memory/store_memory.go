package memory

import (
	"context"
	"slices"
	"sync"

	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/tx"
)

// InMemoryStore keeps audit events in append order, indexed by entity id.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	byEntity map[string][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byEntity: make(map[string][]int)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.byEntity = make(map[string][]int)
}

// Append records event. Inside a ledger transaction that later fails the
// event is withdrawn again.
func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.events)
	s.byEntity[event.EntityID] = append(s.byEntity[event.EntityID], i)
	s.events = append(s.events, event)
	tx.OnRollback(ctx, func() { s.withdraw(i) })
	return nil
}

func (s *InMemoryStore) withdraw(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.events) {
		return
	}
	s.events = slices.Delete(s.events, i, i+1)
	s.byEntity = make(map[string][]int, len(s.byEntity))
	for j, e := range s.events {
		s.byEntity[e.EntityID] = append(s.byEntity[e.EntityID], j)
	}
}

// ListByEntity returns events for one entity, oldest first.
func (s *InMemoryStore) ListByEntity(_ context.Context, entityID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.byEntity[entityID]))
	for _, i := range s.byEntity[entityID] {
		out = append(out, s.events[i])
	}
	return out, nil
}

// ListRecent returns the most recent N events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	out := slices.Clone(s.events[start:])
	slices.Reverse(out)
	return out, nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events), nil
}
