// Package store persists deposit credits, the processed-proof replay set and
// operator and token configuration.
package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/deposit/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
)

type tokenKey struct{ chain, token string }

type InMemoryStore struct {
	mu        sync.RWMutex
	credits   map[id.Address]models.Credit
	processed map[id.Hash]models.ProcessedProof
	operators map[id.Address]models.Operator
	tokens    map[tokenKey]models.TokenConfig
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credits:   make(map[id.Address]models.Credit),
		processed: make(map[id.Hash]models.ProcessedProof),
		operators: make(map[id.Address]models.Operator),
		tokens:    make(map[tokenKey]models.TokenConfig),
	}
}

func (s *InMemoryStore) FindCredit(_ context.Context, holder id.Address) (*models.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credits[holder]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c.Provenance = maps.Clone(c.Provenance)
	return &c, nil
}

func (s *InMemoryStore) SaveCredit(ctx context.Context, holder id.Address, amount decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.credits, holder)
	c, ok := s.credits[holder]
	if !ok {
		c = *models.EmptyCredit(holder)
	}
	c.AmountUSD = amount
	c.UpdatedAt = at
	s.credits[holder] = c
	return nil
}

func (s *InMemoryStore) AddProvenance(ctx context.Context, holder id.Address, chain string, usd decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.credits, holder)
	c, ok := s.credits[holder]
	if !ok {
		c = *models.EmptyCredit(holder)
	}
	prov := maps.Clone(c.Provenance)
	if prov == nil {
		prov = map[string]decimal.Decimal{}
	}
	prov[chain] = prov[chain].Add(usd)
	c.Provenance = prov
	s.credits[holder] = c
	return nil
}

func (s *InMemoryStore) IsProcessed(_ context.Context, hash id.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[hash]
	return ok, nil
}

func (s *InMemoryStore) MarkProcessed(ctx context.Context, p models.ProcessedProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[p.Hash]; ok {
		return sentinel.ErrConflict
	}
	tx.Restore(ctx, &s.mu, s.processed, p.Hash)
	s.processed[p.Hash] = p
	return nil
}

func (s *InMemoryStore) FindOperator(_ context.Context, addr id.Address) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &op, nil
}

func (s *InMemoryStore) SaveOperator(ctx context.Context, op models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.operators, op.Address)
	s.operators[op.Address] = op
	return nil
}

func (s *InMemoryStore) DeleteOperator(ctx context.Context, addr id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operators[addr]; !ok {
		return sentinel.ErrNotFound
	}
	tx.Restore(ctx, &s.mu, s.operators, addr)
	delete(s.operators, addr)
	return nil
}

func (s *InMemoryStore) ListOperators(_ context.Context) ([]models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Collect(maps.Values(s.operators))
	slices.SortFunc(out, func(a, b models.Operator) int { return strings.Compare(string(a.Address), string(b.Address)) })
	return out, nil
}

func (s *InMemoryStore) FindToken(_ context.Context, chain, token string) (*models.TokenConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.tokens[tokenKey{chain, token}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &cfg, nil
}

func (s *InMemoryStore) SaveToken(ctx context.Context, cfg models.TokenConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.tokens, tokenKey{cfg.Chain, cfg.Token})
	s.tokens[tokenKey{cfg.Chain, cfg.Token}] = cfg
	return nil
}

func (s *InMemoryStore) ListTokens(_ context.Context) ([]models.TokenConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Collect(maps.Values(s.tokens))
	slices.SortFunc(out, func(a, b models.TokenConfig) int {
		if c := strings.Compare(a.Chain, b.Chain); c != 0 {
			return c
		}
		return strings.Compare(a.Token, b.Token)
	})
	return out, nil
}
