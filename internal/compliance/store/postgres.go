package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"aurum/internal/compliance/models"
	"aurum/internal/platform/postgres"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// PostgresStore persists compliance state in the compliance_* tables.
// Action configs are stored as JSONB documents keyed by action.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindProfile(ctx context.Context, holder id.Address) (*models.Profile, error) {
	query := `
		SELECT holder, restriction_level, jurisdiction, risk_score, sanctions_lists,
		       is_pep, has_adverse_media, reason, last_updated
		FROM compliance_profiles
		WHERE holder = $1
	`
	var (
		p           models.Profile
		restriction string
		lists       []string
	)
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, holder.String()).Scan(
		&p.Holder, &restriction, &p.Jurisdiction, &p.RiskScore, pq.Array(&lists),
		&p.IsPEP, &p.HasAdverseMedia, &p.Reason, &p.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find compliance profile: %w", err)
	}
	if p.RestrictionLevel, err = models.ParseRestrictionLevel(restriction); err != nil {
		return nil, fmt.Errorf("decode restriction level: %w", err)
	}
	for _, l := range lists {
		p.SanctionsLists = append(p.SanctionsLists, models.SanctionsList(l))
	}
	p.LastUpdated = p.LastUpdated.UTC()
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO compliance_profiles (holder, restriction_level, jurisdiction, risk_score, sanctions_lists,
		                                 is_pep, has_adverse_media, reason, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (holder) DO UPDATE SET
			restriction_level = EXCLUDED.restriction_level,
			jurisdiction = EXCLUDED.jurisdiction,
			risk_score = EXCLUDED.risk_score,
			sanctions_lists = EXCLUDED.sanctions_lists,
			is_pep = EXCLUDED.is_pep,
			has_adverse_media = EXCLUDED.has_adverse_media,
			reason = EXCLUDED.reason,
			last_updated = EXCLUDED.last_updated
	`
	lists := make([]string, 0, len(p.SanctionsLists))
	for _, l := range p.SanctionsLists {
		lists = append(lists, string(l))
	}
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		p.Holder.String(), p.RestrictionLevel.String(), p.Jurisdiction.String(), p.RiskScore, pq.Array(lists),
		p.IsPEP, p.HasAdverseMedia, p.Reason, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save compliance profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsBlocked(ctx context.Context, holder id.Address) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM compliance_global_blocks WHERE holder = $1)`, holder.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check global block: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SetBlock(ctx context.Context, block models.GlobalBlock) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO compliance_global_blocks (holder, reason, blocked_at) VALUES ($1, $2, $3)
		ON CONFLICT (holder) DO UPDATE SET reason = EXCLUDED.reason
	`, block.Holder.String(), block.Reason, block.BlockedAt)
	if err != nil {
		return fmt.Errorf("set global block: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveBlock(ctx context.Context, holder id.Address) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM compliance_global_blocks WHERE holder = $1`, holder.String())
	if err != nil {
		return fmt.Errorf("remove global block: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActionConfig(ctx context.Context, action models.Action) (*models.ActionConfig, error) {
	var raw []byte
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT config FROM compliance_action_configs WHERE action = $1`, string(action),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find action config: %w", err)
	}
	var cfg models.ActionConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode action config: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) SaveActionConfig(ctx context.Context, cfg *models.ActionConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode action config: %w", err)
	}
	_, err = postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO compliance_action_configs (action, config) VALUES ($1, $2)
		ON CONFLICT (action) DO UPDATE SET config = EXCLUDED.config
	`, string(cfg.Action), raw)
	if err != nil {
		return fmt.Errorf("save action config: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActionConfigs(ctx context.Context) ([]*models.ActionConfig, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT config FROM compliance_action_configs ORDER BY action`)
	if err != nil {
		return nil, fmt.Errorf("list action configs: %w", err)
	}
	defer rows.Close()

	var out []*models.ActionConfig
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan action config: %w", err)
		}
		var cfg models.ActionConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode action config: %w", err)
		}
		out = append(out, &cfg)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindJurisdictionRule(ctx context.Context, code id.Jurisdiction) (*models.JurisdictionRule, error) {
	query := `
		SELECT code, allowed, max_participants, current_participants, per_participant_cap_usd, requires_enhanced_kyc
		FROM compliance_jurisdiction_rules
		WHERE code = $1
	`
	var r models.JurisdictionRule
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, query, code.String()).Scan(
		&r.Code, &r.Allowed, &r.MaxParticipants, &r.CurrentParticipants, &r.PerParticipantCapUSD, &r.RequiresEnhancedKYC,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find jurisdiction rule: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) SaveJurisdictionRule(ctx context.Context, r *models.JurisdictionRule) error {
	query := `
		INSERT INTO compliance_jurisdiction_rules (code, allowed, max_participants, current_participants,
		                                           per_participant_cap_usd, requires_enhanced_kyc)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			allowed = EXCLUDED.allowed,
			max_participants = EXCLUDED.max_participants,
			current_participants = GREATEST(compliance_jurisdiction_rules.current_participants, EXCLUDED.current_participants),
			per_participant_cap_usd = EXCLUDED.per_participant_cap_usd,
			requires_enhanced_kyc = EXCLUDED.requires_enhanced_kyc
	`
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, query,
		r.Code.String(), r.Allowed, int64(r.MaxParticipants), int64(r.CurrentParticipants),
		r.PerParticipantCapUSD, r.RequiresEnhancedKYC,
	)
	if err != nil {
		return fmt.Errorf("save jurisdiction rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsParticipant(ctx context.Context, holder id.Address) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM compliance_participants WHERE holder = $1)`, holder.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddParticipant(ctx context.Context, holder id.Address, jurisdiction id.Jurisdiction, at time.Time) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO compliance_participants (holder, jurisdiction, admitted_at) VALUES ($1, $2, $3)`,
		holder.String(), jurisdiction.String(), at,
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}
