package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"aurum/internal/platform/postgres"
	"aurum/internal/token/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindAccount(ctx context.Context, holder id.Address) (*models.Account, error) {
	a := models.Account{Holder: holder}
	var lock sql.NullTime
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT balance, transfer_lock_until FROM token_accounts WHERE holder = $1`, holder.String(),
	).Scan(&a.Balance, &lock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token account: %w", err)
	}
	a.TransferLockUntil = postgres.TimeOrZero(lock)
	return &a, nil
}

func (s *PostgresStore) SaveAccount(ctx context.Context, a *models.Account) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO token_accounts (holder, balance, transfer_lock_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (holder) DO UPDATE
		SET balance = EXCLUDED.balance, transfer_lock_until = EXCLUDED.transfer_lock_until
	`, a.Holder.String(), a.Balance.String(), postgres.NullTime(a.TransferLockUntil))
	if err != nil {
		return fmt.Errorf("save token account: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT holder, balance, transfer_lock_until FROM token_accounts
		WHERE balance > 0
		ORDER BY holder
	`)
	if err != nil {
		return nil, fmt.Errorf("list token accounts: %w", err)
	}
	defer rows.Close()
	var out []models.Account
	for rows.Next() {
		var (
			a    models.Account
			lock sql.NullTime
		)
		if err := rows.Scan(&a.Holder, &a.Balance, &lock); err != nil {
			return nil, fmt.Errorf("scan token account: %w", err)
		}
		a.TransferLockUntil = postgres.TimeOrZero(lock)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM token_accounts`,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total supply: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) FindAllowance(ctx context.Context, owner, spender id.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT amount FROM token_allowances WHERE owner = $1 AND spender = $2`, owner.String(), spender.String(),
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("find allowance: %w", err)
	}
	return amount, nil
}

func (s *PostgresStore) SaveAllowance(ctx context.Context, owner, spender id.Address, amount decimal.Decimal) error {
	conn := postgres.Conn(ctx, s.db)
	var err error
	if amount.IsZero() {
		_, err = conn.ExecContext(ctx,
			`DELETE FROM token_allowances WHERE owner = $1 AND spender = $2`, owner.String(), spender.String())
	} else {
		_, err = conn.ExecContext(ctx, `
			INSERT INTO token_allowances (owner, spender, amount) VALUES ($1, $2, $3)
			ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount
		`, owner.String(), spender.String(), amount.String())
	}
	if err != nil {
		return fmt.Errorf("save allowance: %w", err)
	}
	return nil
}
