package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aurum/internal/agreement/models"
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

func (s *PostgresStore) Find(ctx context.Context, hash id.Hash) (*models.Record, error) {
	query := `
		SELECT document_hash, locator, doc_type, signer, notary, recorded_at, revoked, revoked_reason
		FROM agreements
		WHERE document_hash = $1
	`
	var r models.Record
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, hash.String()).Scan(
		&r.DocumentHash, &r.Locator, &r.DocType, &r.Signer, &r.Notary, &r.RecordedAt, &r.Revoked, &r.RevokedReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find agreement: %w", err)
	}
	r.RecordedAt = r.RecordedAt.UTC()
	return &r, nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Record) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO agreements (document_hash, locator, doc_type, signer, notary, recorded_at, revoked, revoked_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.DocumentHash.String(), r.Locator, r.DocType, r.Signer.String(), r.Notary.String(), r.RecordedAt, r.Revoked, r.RevokedReason)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create agreement: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, hash id.Hash, reason string) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE agreements SET revoked = TRUE, revoked_reason = $2 WHERE document_hash = $1`,
		hash.String(), reason,
	)
	if err != nil {
		return fmt.Errorf("revoke agreement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke agreement: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
