// Package flags stores the ledger's manual switches (emergency halt, pause)
// so they survive restarts and are shared by every instance.
package flags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"aurum/internal/platform/postgres"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/tx"
)

const (
	EmergencyHalt = "coverage_emergency_halt"
	Pause         = "guard_pause"
)

// Flag is one named switch. A flag that was never set reads as inactive.
type Flag struct {
	Name      string
	Active    bool
	Reason    string
	UpdatedBy id.Address
	UpdatedAt time.Time
}

type InMemoryStore struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{flags: make(map[string]Flag)}
}

func (s *InMemoryStore) Get(_ context.Context, name string) (Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flags[name]
	if !ok {
		return Flag{Name: name}, nil
	}
	return f, nil
}

func (s *InMemoryStore) Set(ctx context.Context, f Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.Restore(ctx, &s.mu, s.flags, f.Name)
	s.flags[f.Name] = f
	return nil
}

// PostgresStore keeps flags in ledger_flags.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, name string) (Flag, error) {
	f := Flag{Name: name}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT active, reason, updated_by, updated_at FROM ledger_flags WHERE name = $1`, name,
	).Scan(&f.Active, &f.Reason, &f.UpdatedBy, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Flag{Name: name}, nil
	}
	if err != nil {
		return Flag{}, fmt.Errorf("read flag %s: %w", name, err)
	}
	f.UpdatedAt = f.UpdatedAt.UTC()
	return f, nil
}

func (s *PostgresStore) Set(ctx context.Context, f Flag) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO ledger_flags (name, active, reason, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			active = EXCLUDED.active,
			reason = EXCLUDED.reason,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, f.Name, f.Active, f.Reason, f.UpdatedBy.String(), f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set flag %s: %w", f.Name, err)
	}
	return nil
}
