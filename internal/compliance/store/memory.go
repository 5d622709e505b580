// Package store holds compliance persistence: in-memory and PostgreSQL
// stores for profiles and rules, and cooldown stores backed by memory or
// Redis.
package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"aurum/internal/compliance/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type InMemoryStore struct {
	mu           sync.RWMutex
	profiles     map[id.Address]models.Profile
	blocks       map[id.Address]models.GlobalBlock
	actions      map[models.Action]models.ActionConfig
	rules        map[id.Jurisdiction]models.JurisdictionRule
	participants map[id.Address]id.Jurisdiction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles:     make(map[id.Address]models.Profile),
		blocks:       make(map[id.Address]models.GlobalBlock),
		actions:      make(map[models.Action]models.ActionConfig),
		rules:        make(map[id.Jurisdiction]models.JurisdictionRule),
		participants: make(map[id.Address]id.Jurisdiction),
	}
}

func (s *InMemoryStore) FindProfile(_ context.Context, holder id.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[holder]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	p.SanctionsLists = slices.Clone(p.SanctionsLists)
	return &p, nil
}

func (s *InMemoryStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.profiles, profile.Holder)
	p := *profile
	p.SanctionsLists = slices.Clone(profile.SanctionsLists)
	s.profiles[p.Holder] = p
	return nil
}

func (s *InMemoryStore) IsBlocked(_ context.Context, holder id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[holder]
	return ok, nil
}

func (s *InMemoryStore) SetBlock(ctx context.Context, block models.GlobalBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.blocks, block.Holder)
	s.blocks[block.Holder] = block
	return nil
}

func (s *InMemoryStore) RemoveBlock(ctx context.Context, holder id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.blocks, holder)
	delete(s.blocks, holder)
	return nil
}

func (s *InMemoryStore) FindActionConfig(_ context.Context, action models.Action) (*models.ActionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.actions[action]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cfg.AllowedJurisdictions = slices.Clone(cfg.AllowedJurisdictions)
	return &cfg, nil
}

func (s *InMemoryStore) SaveActionConfig(ctx context.Context, cfg *models.ActionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.actions, cfg.Action)
	c := *cfg
	c.AllowedJurisdictions = slices.Clone(cfg.AllowedJurisdictions)
	s.actions[c.Action] = c
	return nil
}

func (s *InMemoryStore) ListActionConfigs(_ context.Context) ([]*models.ActionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ActionConfig, 0, len(s.actions))
	for _, cfg := range s.actions {
		c := cfg
		c.AllowedJurisdictions = slices.Clone(cfg.AllowedJurisdictions)
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *models.ActionConfig) int {
		return strings.Compare(string(a.Action), string(b.Action))
	})
	return out, nil
}

func (s *InMemoryStore) FindJurisdictionRule(_ context.Context, code id.Jurisdiction) (*models.JurisdictionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryStore) SaveJurisdictionRule(ctx context.Context, rule *models.JurisdictionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.rules, rule.Code)
	s.rules[rule.Code] = *rule
	return nil
}

func (s *InMemoryStore) IsParticipant(_ context.Context, holder id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participants[holder]
	return ok, nil
}

func (s *InMemoryStore) AddParticipant(ctx context.Context, holder id.Address, jurisdiction id.Jurisdiction, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[holder]; ok {
		return sentinel.ErrAlreadyUsed
	}
	tx.Restore(ctx, &s.mu, s.participants, holder)
	s.participants[holder] = jurisdiction
	return nil
}

type cooldownKey struct {
	holder id.Address
	action models.Action
}

// InMemoryCooldowns keeps last-action times in process memory. Entries are
// kept until overwritten; the ttl is not enforced.
type InMemoryCooldowns struct {
	mu   sync.RWMutex
	last map[cooldownKey]time.Time
}

func NewInMemoryCooldowns() *InMemoryCooldowns {
	return &InMemoryCooldowns{last: make(map[cooldownKey]time.Time)}
}

func (c *InMemoryCooldowns) LastAction(_ context.Context, holder id.Address, action models.Action) (time.Time, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.last[cooldownKey{holder, action}]
	return t, ok, nil
}

func (c *InMemoryCooldowns) RecordAction(_ context.Context, holder id.Address, action models.Action, at time.Time, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[cooldownKey{holder, action}] = at
	return nil
}
