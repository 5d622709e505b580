package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/platform/postgres"
	"aurum/internal/yield/models"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

const epochColumns = `number, start_time, end_time, rate_bps, eligible_supply_snapshot, total_claimed, finalized, finalized_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpoch(row rowScanner) (*models.Epoch, error) {
	var (
		e           models.Epoch
		number      int64
		finalizedAt sql.NullTime
	)
	if err := row.Scan(&number, &e.StartTime, &e.EndTime, &e.RateBps, &e.EligibleSupplySnapshot,
		&e.TotalClaimed, &e.Finalized, &finalizedAt); err != nil {
		return nil, err
	}
	e.Number = id.EpochNumber(number)
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	e.FinalizedAt = postgres.TimeOrZero(finalizedAt)
	return &e, nil
}

func (s *PostgresStore) CreateEpoch(ctx context.Context, e *models.Epoch) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO yield_epochs (`+epochColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, int64(e.Number), e.StartTime, e.EndTime, e.RateBps, e.EligibleSupplySnapshot.String(),
		e.TotalClaimed.String(), e.Finalized, postgres.NullTime(e.FinalizedAt))
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create yield epoch: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEpoch(ctx context.Context, n id.EpochNumber) (*models.Epoch, error) {
	e, err := scanEpoch(postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+epochColumns+` FROM yield_epochs WHERE number = $1`, int64(n)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find yield epoch: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) LatestEpoch(ctx context.Context) (*models.Epoch, error) {
	e, err := scanEpoch(postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+epochColumns+` FROM yield_epochs ORDER BY number DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest yield epoch: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEpochs(ctx context.Context) ([]models.Epoch, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+epochColumns+` FROM yield_epochs ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("list yield epochs: %w", err)
	}
	defer rows.Close()
	var out []models.Epoch
	for rows.Next() {
		e, err := scanEpoch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan yield epoch: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// FinalizeEpoch must run inside the caller's transaction so the flag and the
// snapshot rows commit together.
func (s *PostgresStore) FinalizeEpoch(ctx context.Context, n id.EpochNumber, snapshot []models.Snapshot, supply decimal.Decimal, at time.Time) error {
	conn := postgres.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, `
		UPDATE yield_epochs
		SET finalized = TRUE, finalized_at = $2, eligible_supply_snapshot = $3
		WHERE number = $1 AND NOT finalized
	`, int64(n), at, supply.String())
	if err != nil {
		return fmt.Errorf("finalize yield epoch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize yield epoch: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindEpoch(ctx, n); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	for _, snap := range snapshot {
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO yield_snapshots (epoch, holder, basis) VALUES ($1, $2, $3)`,
			int64(n), snap.Holder.String(), snap.Basis.String()); err != nil {
			return fmt.Errorf("save yield snapshot: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindSnapshot(ctx context.Context, n id.EpochNumber, holder id.Address) (decimal.Decimal, error) {
	var basis decimal.Decimal
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT basis FROM yield_snapshots WHERE epoch = $1 AND holder = $2`, int64(n), holder.String(),
	).Scan(&basis)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, sentinel.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("find yield snapshot: %w", err)
	}
	return basis, nil
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		c      models.Claim
		number int64
		holder string
	)
	if err := row.Scan(&number, &holder, &c.Amount, &c.ClaimedAt); err != nil {
		return nil, err
	}
	c.Epoch = id.EpochNumber(number)
	c.Holder = id.Address(holder)
	c.ClaimedAt = c.ClaimedAt.UTC()
	return &c, nil
}

func (s *PostgresStore) FindClaim(ctx context.Context, n id.EpochNumber, holder id.Address) (*models.Claim, error) {
	c, err := scanClaim(postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT epoch, holder, amount, claimed_at FROM yield_claims WHERE epoch = $1 AND holder = $2`,
		int64(n), holder.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find yield claim: %w", err)
	}
	return c, nil
}

// RecordClaim relies on the (epoch, holder) primary key for exclusivity.
func (s *PostgresStore) RecordClaim(ctx context.Context, c *models.Claim) error {
	conn := postgres.Conn(ctx, s.db)
	_, err := conn.ExecContext(ctx,
		`INSERT INTO yield_claims (epoch, holder, amount, claimed_at) VALUES ($1, $2, $3, $4)`,
		int64(c.Epoch), c.Holder.String(), c.Amount.String(), c.ClaimedAt)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("record yield claim: %w", err)
	}
	if _, err := conn.ExecContext(ctx,
		`UPDATE yield_epochs SET total_claimed = total_claimed + $2 WHERE number = $1`,
		int64(c.Epoch), c.Amount.String()); err != nil {
		return fmt.Errorf("update yield epoch total: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListClaims(ctx context.Context, holder id.Address) ([]models.Claim, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT epoch, holder, amount, claimed_at FROM yield_claims WHERE holder = $1 ORDER BY epoch`,
		holder.String())
	if err != nil {
		return nil, fmt.Errorf("list yield claims: %w", err)
	}
	defer rows.Close()
	var out []models.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan yield claim: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
