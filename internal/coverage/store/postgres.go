package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"aurum/internal/coverage/models"
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

func (s *PostgresStore) FindSource(ctx context.Context, sourceID id.SourceID) (*models.Source, error) {
	var src models.Source
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT source_id, reporter, weight_bps, active FROM coverage_sources WHERE source_id = $1`,
		sourceID.String(),
	).Scan(&src.ID, &src.Reporter, &src.WeightBps, &src.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find source: %w", err)
	}
	return &src, nil
}

func (s *PostgresStore) SaveSource(ctx context.Context, src *models.Source) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO coverage_sources (source_id, reporter, weight_bps, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id) DO UPDATE
		SET reporter = EXCLUDED.reporter, weight_bps = EXCLUDED.weight_bps, active = EXCLUDED.active
	`, src.ID.String(), src.Reporter.String(), int64(src.WeightBps), src.Active)
	if err != nil {
		return fmt.Errorf("save source: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]models.Source, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT source_id, reporter, weight_bps, active FROM coverage_sources ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Reporter, &src.WeightBps, &src.Active); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestReport(ctx context.Context, sourceID id.SourceID) (*models.Report, error) {
	var (
		r     models.Report
		ratio string
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT source_id, reserve_quantity, issued_quantity, coverage_ratio_bps, reported_at, reporter
		FROM coverage_reports
		WHERE source_id = $1
		ORDER BY reported_at DESC, id DESC
		LIMIT 1
	`, sourceID.String()).Scan(&r.SourceID, &r.ReserveQuantity, &r.IssuedQuantity, &ratio, &r.Timestamp, &r.Reporter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	if r.CoverageRatioBps, err = strconv.ParseUint(ratio, 10, 64); err != nil {
		return nil, fmt.Errorf("latest report ratio: %w", err)
	}
	r.Timestamp = r.Timestamp.UTC()
	return &r, nil
}

func (s *PostgresStore) AppendReport(ctx context.Context, r *models.Report) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO coverage_reports (source_id, reserve_quantity, issued_quantity, coverage_ratio_bps, reported_at, reporter)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.SourceID.String(), r.ReserveQuantity.String(), r.IssuedQuantity.String(),
		strconv.FormatUint(r.CoverageRatioBps, 10), r.Timestamp, r.Reporter.String())
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestAggregate(ctx context.Context) (*models.Aggregate, error) {
	var (
		a        models.Aggregate
		ratio    string
		excluded pq.StringArray
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT reserve_quantity, issued_quantity, coverage_ratio_bps, as_of, source_count, excluded, computed_at
		FROM coverage_aggregates
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&a.ReserveQuantity, &a.IssuedQuantity, &ratio, &a.Timestamp, &a.SourceCount, &excluded, &a.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest aggregate: %w", err)
	}
	if a.CoverageRatioBps, err = strconv.ParseUint(ratio, 10, 64); err != nil {
		return nil, fmt.Errorf("latest aggregate ratio: %w", err)
	}
	for _, e := range excluded {
		a.Excluded = append(a.Excluded, id.SourceID(e))
	}
	a.Timestamp = a.Timestamp.UTC()
	a.ComputedAt = a.ComputedAt.UTC()
	return &a, nil
}

func (s *PostgresStore) AppendAggregate(ctx context.Context, a *models.Aggregate) error {
	excluded := make([]string, 0, len(a.Excluded))
	for _, e := range a.Excluded {
		excluded = append(excluded, e.String())
	}
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO coverage_aggregates (reserve_quantity, issued_quantity, coverage_ratio_bps, as_of, source_count, excluded, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ReserveQuantity.String(), a.IssuedQuantity.String(), strconv.FormatUint(a.CoverageRatioBps, 10),
		a.Timestamp, a.SourceCount, pq.Array(excluded), a.ComputedAt)
	if err != nil {
		return fmt.Errorf("append aggregate: %w", err)
	}
	return nil
}

// UpsertDaily overwrites the day's snapshot; the last aggregate of a day wins.
func (s *PostgresStore) UpsertDaily(ctx context.Context, snap *models.DailySnapshot) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO coverage_daily (day, reserve_quantity, issued_quantity, coverage_ratio_bps, as_of)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day) DO UPDATE
		SET reserve_quantity = EXCLUDED.reserve_quantity,
			issued_quantity = EXCLUDED.issued_quantity,
			coverage_ratio_bps = EXCLUDED.coverage_ratio_bps,
			as_of = EXCLUDED.as_of
	`, snap.Day, snap.ReserveQuantity.String(), snap.IssuedQuantity.String(),
		strconv.FormatUint(snap.CoverageRatioBps, 10), snap.AsOf)
	if err != nil {
		return fmt.Errorf("upsert daily snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDaily(ctx context.Context, from, to time.Time) ([]models.DailySnapshot, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT day, reserve_quantity, issued_quantity, coverage_ratio_bps, as_of
		FROM coverage_daily
		WHERE day BETWEEN $1 AND $2
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.DailySnapshot
	for rows.Next() {
		var (
			snap  models.DailySnapshot
			ratio string
		)
		if err := rows.Scan(&snap.Day, &snap.ReserveQuantity, &snap.IssuedQuantity, &ratio, &snap.AsOf); err != nil {
			return nil, fmt.Errorf("scan daily snapshot: %w", err)
		}
		if snap.CoverageRatioBps, err = strconv.ParseUint(ratio, 10, 64); err != nil {
			return nil, fmt.Errorf("daily snapshot ratio: %w", err)
		}
		snap.Day = models.Day(snap.Day)
		snap.AsOf = snap.AsOf.UTC()
		out = append(out, snap)
	}
	return out, rows.Err()
}
