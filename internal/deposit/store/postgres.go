package store

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/deposit/models"
	"aurum/internal/platform/postgres"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindCredit(ctx context.Context, holder id.Address) (*models.Credit, error) {
	conn := postgres.Conn(ctx, s.db)
	c := models.EmptyCredit(holder)
	err := conn.QueryRowContext(ctx,
		`SELECT amount_usd, updated_at FROM deposit_credits WHERE holder = $1`, holder.String(),
	).Scan(&c.AmountUSD, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credit: %w", err)
	}
	c.UpdatedAt = c.UpdatedAt.UTC()

	rows, err := conn.QueryContext(ctx,
		`SELECT chain, deposited_usd FROM deposit_provenance WHERE holder = $1`, holder.String())
	if err != nil {
		return nil, fmt.Errorf("find provenance: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			chain string
			usd   decimal.Decimal
		)
		if err := rows.Scan(&chain, &usd); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		c.Provenance[chain] = usd
	}
	return c, rows.Err()
}

func (s *PostgresStore) SaveCredit(ctx context.Context, holder id.Address, amount decimal.Decimal, at time.Time) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO deposit_credits (holder, amount_usd, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (holder) DO UPDATE SET amount_usd = EXCLUDED.amount_usd, updated_at = EXCLUDED.updated_at
	`, holder.String(), amount.String(), at)
	if err != nil {
		return fmt.Errorf("save credit: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddProvenance(ctx context.Context, holder id.Address, chain string, usd decimal.Decimal) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO deposit_provenance (holder, chain, deposited_usd)
		VALUES ($1, $2, $3)
		ON CONFLICT (holder, chain) DO UPDATE SET deposited_usd = deposit_provenance.deposited_usd + EXCLUDED.deposited_usd
	`, holder.String(), chain, usd.String())
	if err != nil {
		return fmt.Errorf("add provenance: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsProcessed(ctx context.Context, hash id.Hash) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM deposit_processed_proofs WHERE proof_hash = $1)`, hash.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed proof: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, p models.ProcessedProof) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO deposit_processed_proofs (proof_hash, holder, credited_usd, processed_at)
		VALUES ($1, $2, $3, $4)
	`, p.Hash.String(), p.Holder.String(), p.CreditedUSD.String(), p.ProcessedAt)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("mark proof processed: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindOperator(ctx context.Context, addr id.Address) (*models.Operator, error) {
	var key []byte
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT public_key FROM deposit_operators WHERE address = $1`, addr.String(),
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find operator: %w", err)
	}
	return &models.Operator{Address: addr, PublicKey: ed25519.PublicKey(key)}, nil
}

func (s *PostgresStore) SaveOperator(ctx context.Context, op models.Operator) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO deposit_operators (address, public_key) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET public_key = EXCLUDED.public_key
	`, op.Address.String(), []byte(op.PublicKey))
	if err != nil {
		return fmt.Errorf("save operator: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOperator(ctx context.Context, addr id.Address) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM deposit_operators WHERE address = $1`, addr.String())
	if err != nil {
		return fmt.Errorf("delete operator: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete operator: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListOperators(ctx context.Context) ([]models.Operator, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT address, public_key FROM deposit_operators ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()
	var out []models.Operator
	for rows.Next() {
		var (
			op  models.Operator
			key []byte
		)
		if err := rows.Scan(&op.Address, &key); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		op.PublicKey = ed25519.PublicKey(key)
		out = append(out, op)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindToken(ctx context.Context, chain, token string) (*models.TokenConfig, error) {
	cfg := models.TokenConfig{Chain: chain, Token: token}
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT min_amount, max_amount, stable FROM deposit_tokens WHERE chain = $1 AND token = $2`, chain, token,
	).Scan(&cfg.Min, &cfg.Max, &cfg.Stable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) SaveToken(ctx context.Context, cfg models.TokenConfig) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO deposit_tokens (chain, token, min_amount, max_amount, stable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chain, token) DO UPDATE
		SET min_amount = EXCLUDED.min_amount, max_amount = EXCLUDED.max_amount, stable = EXCLUDED.stable
	`, cfg.Chain, cfg.Token, cfg.Min.String(), cfg.Max.String(), cfg.Stable)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTokens(ctx context.Context) ([]models.TokenConfig, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT chain, token, min_amount, max_amount, stable FROM deposit_tokens ORDER BY chain, token`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()
	var out []models.TokenConfig
	for rows.Next() {
		var cfg models.TokenConfig
		if err := rows.Scan(&cfg.Chain, &cfg.Token, &cfg.Min, &cfg.Max, &cfg.Stable); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
