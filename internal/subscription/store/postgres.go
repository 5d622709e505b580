package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aurum/internal/platform/postgres"
	"aurum/internal/subscription/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

const subscriptionColumns = `id, holder, deposit_usd, entry_price_usd, units_allocated, lock_mode,
	cliff_end_time, extended_hold_end_time, document_hash, matured, matured_at, subscription_time`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		subID     uuid.UUID
		holder    string
		lockMode  string
		holdEnd   sql.NullTime
		maturedAt sql.NullTime
	)
	if err := row.Scan(&subID, &holder, &sub.DepositUSD, &sub.EntryPriceUSD, &sub.UnitsAllocated, &lockMode,
		&sub.CliffEndTime, &holdEnd, &sub.DocumentHash, &sub.Matured, &maturedAt, &sub.SubscriptionTime); err != nil {
		return nil, err
	}
	sub.ID = id.SubscriptionID(subID)
	sub.Holder = id.Address(holder)
	sub.LockMode = models.LockMode(lockMode)
	sub.CliffEndTime = sub.CliffEndTime.UTC()
	sub.SubscriptionTime = sub.SubscriptionTime.UTC()
	sub.ExtendedHoldEndTime = postgres.TimeOrZero(holdEnd)
	sub.MaturedAt = postgres.TimeOrZero(maturedAt)
	return &sub, nil
}

func (s *PostgresStore) Create(ctx context.Context, sub *models.Subscription) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, uuid.UUID(sub.ID), sub.Holder.String(), sub.DepositUSD.String(), sub.EntryPriceUSD.String(),
		sub.UnitsAllocated.String(), string(sub.LockMode), sub.CliffEndTime,
		postgres.NullTime(sub.ExtendedHoldEndTime), sub.DocumentHash.String(), sub.Matured,
		postgres.NullTime(sub.MaturedAt), sub.SubscriptionTime)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	sub, err := scanSubscription(postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, uuid.UUID(subID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) DocumentUsed(ctx context.Context, hash id.Hash) (bool, error) {
	var used bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE document_hash = $1)`, hash.String(),
	).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check document hash: %w", err)
	}
	return used, nil
}

func (s *PostgresStore) MarkMatured(ctx context.Context, subID id.SubscriptionID, at time.Time) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE subscriptions SET matured = TRUE, matured_at = $2 WHERE id = $1 AND NOT matured`,
		uuid.UUID(subID), at)
	if err != nil {
		return fmt.Errorf("mark subscription matured: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark subscription matured: %w", err)
	}
	if n == 0 {
		if _, err := s.Find(ctx, subID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]models.Subscription, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	var out []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holder id.Address) ([]models.Subscription, error) {
	return s.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE holder = $1 ORDER BY subscription_time, id`, holder.String())
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Subscription, error) {
	if limit <= 0 {
		return s.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
			WHERE NOT matured AND cliff_end_time <= $1 ORDER BY cliff_end_time, id`, now)
	}
	return s.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE NOT matured AND cliff_end_time <= $1 ORDER BY cliff_end_time, id LIMIT $2`, now, limit)
}

func (s *PostgresStore) AllocatedUnits(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(units_allocated), 0) FROM subscriptions`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum allocated units: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) HolderDepositUSD(ctx context.Context, holder id.Address) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(deposit_usd), 0) FROM subscriptions WHERE holder = $1`, holder.String()).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum holder deposits: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE matured),
		       COALESCE(SUM(units_allocated), 0),
		       COALESCE(SUM(units_allocated) FILTER (WHERE matured), 0)
		FROM subscriptions
	`).Scan(&st.Subscriptions, &st.Matured, &st.AllocatedUnits, &st.MaturedUnits)
	if err != nil {
		return nil, fmt.Errorf("subscription stats: %w", err)
	}
	return &st, nil
}
