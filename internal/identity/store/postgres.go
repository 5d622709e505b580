package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aurum/internal/identity/models"
	"aurum/internal/platform/postgres"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// PostgresStore persists identity state in identity_records,
// identity_sessions and identity_allowlist.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByHolder(ctx context.Context, holder id.Address) (*models.Record, error) {
	query := `
		SELECT holder, kyc_provider, kyc_session_id, kyc_level, accreditation, jurisdiction,
		       issued_at, expires_at, revoked, revoked_reason
		FROM identity_records
		WHERE holder = $1
	`
	var (
		r                    models.Record
		level, accreditation string
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, holder.String()).Scan(
		&r.Holder, &r.KYCProvider, &r.KYCSessionID, &level, &accreditation, &r.Jurisdiction,
		&r.IssuedAt, &r.ExpiresAt, &r.Revoked, &r.RevokedReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if r.KYCLevel, err = models.ParseKYCLevel(level); err != nil {
		return nil, fmt.Errorf("decode kyc level: %w", err)
	}
	if r.Accreditation, err = models.ParseAccreditation(accreditation); err != nil {
		return nil, fmt.Errorf("decode accreditation: %w", err)
	}
	r.IssuedAt = r.IssuedAt.UTC()
	r.ExpiresAt = r.ExpiresAt.UTC()
	return &r, nil
}

func (s *PostgresStore) Save(ctx context.Context, r *models.Record) error {
	query := `
		INSERT INTO identity_records (holder, kyc_provider, kyc_session_id, kyc_level, accreditation,
		                              jurisdiction, issued_at, expires_at, revoked, revoked_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (holder) DO UPDATE SET
			kyc_provider = EXCLUDED.kyc_provider,
			kyc_session_id = EXCLUDED.kyc_session_id,
			kyc_level = EXCLUDED.kyc_level,
			accreditation = EXCLUDED.accreditation,
			jurisdiction = EXCLUDED.jurisdiction,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			revoked = EXCLUDED.revoked,
			revoked_reason = EXCLUDED.revoked_reason
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		r.Holder.String(), r.KYCProvider, r.KYCSessionID, r.KYCLevel.String(), r.Accreditation.String(),
		r.Jurisdiction.String(), r.IssuedAt, r.ExpiresAt, r.Revoked, r.RevokedReason,
	)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) SessionUsed(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_sessions WHERE session_id = $1)`, sessionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkSessionUsed(ctx context.Context, sessionID string, holder id.Address, at time.Time) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO identity_sessions (session_id, holder, used_at) VALUES ($1, $2, $3)`,
		sessionID, holder.String(), at,
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("mark session used: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsApproved(ctx context.Context, kind models.AllowKind, value string) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM identity_allowlist WHERE kind = $1 AND value = $2)`, string(kind), value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check allow-list: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Approve(ctx context.Context, kind models.AllowKind, value string) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO identity_allowlist (kind, value) VALUES ($1, $2) ON CONFLICT DO NOTHING`, string(kind), value,
	)
	if err != nil {
		return fmt.Errorf("approve %s: %w", kind, err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, kind models.AllowKind, value string) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM identity_allowlist WHERE kind = $1 AND value = $2`, string(kind), value,
	)
	if err != nil {
		return fmt.Errorf("remove %s: %w", kind, err)
	}
	return nil
}

func (s *PostgresStore) ListApproved(ctx context.Context, kind models.AllowKind) ([]string, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT value FROM identity_allowlist WHERE kind = $1 ORDER BY value`, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list allow-list: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan allow-list: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT kyc_level, accreditation, COUNT(*)
		FROM identity_records
		WHERE NOT revoked
		GROUP BY kyc_level, accreditation
	`)
	if err != nil {
		return models.Stats{}, fmt.Errorf("identity stats: %w", err)
	}
	defer rows.Close()
	stats := models.Stats{
		ByLevel:         make(map[models.KYCLevel]int),
		ByAccreditation: make(map[models.Accreditation]int),
	}
	for rows.Next() {
		var (
			levelName, accName string
			n                  int
		)
		if err := rows.Scan(&levelName, &accName, &n); err != nil {
			return models.Stats{}, fmt.Errorf("scan identity stats: %w", err)
		}
		level, err := models.ParseKYCLevel(levelName)
		if err != nil {
			return models.Stats{}, err
		}
		acc, err := models.ParseAccreditation(accName)
		if err != nil {
			return models.Stats{}, err
		}
		stats.Active += n
		stats.ByLevel[level] += n
		stats.ByAccreditation[acc] += n
	}
	return stats, rows.Err()
}
