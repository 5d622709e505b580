// Package service implements the compliance engine: the single gate every
// ledger component consults before a holder may act.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/access"
	"aurum/internal/compliance/condition"
	"aurum/internal/compliance/metrics"
	"aurum/internal/compliance/models"
	idmodels "aurum/internal/identity/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
)

// Store persists profiles, the global block list, action configuration,
// jurisdiction rules and the participant set. Lookups of missing keys
// return sentinel.ErrNotFound.
type Store interface {
	FindProfile(ctx context.Context, holder id.Address) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error
	IsBlocked(ctx context.Context, holder id.Address) (bool, error)
	SetBlock(ctx context.Context, block models.GlobalBlock) error
	RemoveBlock(ctx context.Context, holder id.Address) error
	FindActionConfig(ctx context.Context, action models.Action) (*models.ActionConfig, error)
	SaveActionConfig(ctx context.Context, cfg *models.ActionConfig) error
	ListActionConfigs(ctx context.Context) ([]*models.ActionConfig, error)
	FindJurisdictionRule(ctx context.Context, code id.Jurisdiction) (*models.JurisdictionRule, error)
	SaveJurisdictionRule(ctx context.Context, rule *models.JurisdictionRule) error
	IsParticipant(ctx context.Context, holder id.Address) (bool, error)
	AddParticipant(ctx context.Context, holder id.Address, jurisdiction id.Jurisdiction, at time.Time) error
}

// CooldownStore remembers when a holder last performed an action.
type CooldownStore interface {
	LastAction(ctx context.Context, holder id.Address, action models.Action) (time.Time, bool, error)
	// RecordAction stores at; ttl bounds how long the entry must be kept.
	RecordAction(ctx context.Context, holder id.Address, action models.Action, at time.Time, ttl time.Duration) error
}

// IdentityReader is the identity registry as seen by compliance.
type IdentityReader interface {
	Get(ctx context.Context, holder id.Address) (*idmodels.Record, error)
}

type Authorizer interface {
	Require(ctx context.Context, c access.Capability) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DefaultRiskThreshold is the risk score at and above which a holder is
// globally blocked.
const DefaultRiskThreshold = 700

type Service struct {
	store         Store
	cooldowns     CooldownStore
	identity      IdentityReader
	auth          Authorizer
	conditions    *condition.Evaluator
	tx            tx.Runner
	riskThreshold int

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

func WithRiskThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.riskThreshold = threshold
		}
	}
}

func New(store Store, cooldowns CooldownStore, identity IdentityReader, auth Authorizer, opts ...Option) (*Service, error) {
	conditions, err := condition.New()
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:         store,
		cooldowns:     cooldowns,
		identity:      identity,
		auth:          auth,
		conditions:    conditions,
		riskThreshold: DefaultRiskThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner(0)
	}
	return s, nil
}

// Check reports whether holder may perform action now.
func (s *Service) Check(ctx context.Context, holder id.Address, action models.Action) (bool, error) {
	d, err := s.Evaluate(ctx, holder, action)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// Evaluate runs the checks in order and stops at the first failure:
// global block, action enabled, KYC, sanctions, restriction ceiling,
// jurisdiction prohibition, action jurisdiction allow-list, cooldown and
// finally the action's condition.
func (s *Service) Evaluate(ctx context.Context, holder id.Address, action models.Action) (models.Decision, error) {
	d, err := s.evaluate(ctx, holder, action)
	if err != nil {
		return models.Decision{}, err
	}
	s.metrics.ObserveDecision(string(action), string(d.Reason))
	return d, nil
}

func (s *Service) evaluate(ctx context.Context, holder id.Address, action models.Action) (models.Decision, error) {
	now := requestcontext.Now(ctx)

	profile, record, err := s.lookup(ctx, holder)
	if err != nil {
		return models.Decision{}, err
	}

	blocked, err := s.store.IsBlocked(ctx, holder)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read global block list")
	}
	if blocked {
		return models.Deny(holder, action, models.ReasonGlobalBlock, "holder is on the global block list"), nil
	}
	if profile != nil && profile.RiskScore >= s.riskThreshold {
		return models.Deny(holder, action, models.ReasonGlobalBlock,
			fmt.Sprintf("risk score %d at or above threshold %d", profile.RiskScore, s.riskThreshold)), nil
	}

	cfg, err := s.store.FindActionConfig(ctx, action)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Deny(holder, action, models.ReasonActionDisabled, "action is not configured"), nil
	}
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read action config")
	}
	if !cfg.Enabled {
		return models.Deny(holder, action, models.ReasonActionDisabled, "action is disabled"), nil
	}

	jurisdiction := holderJurisdiction(profile, record)
	rule, err := s.rule(ctx, jurisdiction)
	if err != nil {
		return models.Decision{}, err
	}

	if cfg.RequireKYC {
		if record == nil || !record.IsValid(now) {
			return models.Deny(holder, action, models.ReasonKYCRequired, "no valid identity"), nil
		}
		if rule != nil && rule.RequiresEnhancedKYC && record.KYCLevel < idmodels.KYCEnhanced {
			return models.Deny(holder, action, models.ReasonKYCLevel,
				fmt.Sprintf("jurisdiction %s requires enhanced kyc", jurisdiction)), nil
		}
	}

	if profile != nil && profile.Sanctioned() {
		return models.Deny(holder, action, models.ReasonSanctioned, fmt.Sprintf("listed on %v", profile.SanctionsLists)), nil
	}
	if cfg.RequireSanctionsScreening && profile == nil {
		return models.Deny(holder, action, models.ReasonSanctionsUnscreened, "holder has not been screened"), nil
	}

	level := models.RestrictionNone
	if profile != nil {
		level = profile.RestrictionLevel
	}
	if level == models.RestrictionBlocked || level > cfg.MaxRestriction {
		return models.Deny(holder, action, models.ReasonRestrictionLevel,
			fmt.Sprintf("restriction %s exceeds %s", level, cfg.MaxRestriction)), nil
	}

	if rule != nil && !rule.Allowed {
		return models.Deny(holder, action, models.ReasonJurisdictionProhibited,
			fmt.Sprintf("jurisdiction %s is prohibited", jurisdiction)), nil
	}
	if len(cfg.AllowedJurisdictions) > 0 && !slices.Contains(cfg.AllowedJurisdictions, jurisdiction) {
		return models.Deny(holder, action, models.ReasonJurisdictionNotAllowed,
			fmt.Sprintf("jurisdiction %q not allowed for %s", jurisdiction, action)), nil
	}

	if cfg.Cooldown > 0 {
		last, ok, err := s.cooldowns.LastAction(ctx, holder, action)
		if err != nil {
			return models.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read cooldown")
		}
		if ok && now.Before(last.Add(cfg.Cooldown)) {
			return models.Deny(holder, action, models.ReasonCooldown,
				fmt.Sprintf("cooldown until %s", last.Add(cfg.Cooldown).Format(time.RFC3339))), nil
		}
	}

	if cfg.Condition != "" {
		in := condition.Input{
			Holder:           holder.String(),
			Action:           string(action),
			Jurisdiction:     jurisdiction.String(),
			RestrictionLevel: level.String(),
			KYCLevel:         idmodels.KYCNone.String(),
			Accreditation:    idmodels.AccreditationNone.String(),
		}
		if record != nil {
			in.KYCLevel = record.KYCLevel.String()
			in.Accreditation = record.Accreditation.String()
		}
		if profile != nil {
			in.RiskScore = profile.RiskScore
			in.IsPEP = profile.IsPEP
			in.HasAdverseMedia = profile.HasAdverseMedia
		}
		ok, err := s.conditions.Eval(cfg.Condition, in)
		if err != nil {
			s.metrics.IncConditionError()
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "compliance condition failed to evaluate",
					"holder", holder.String(),
					"action", string(action),
					"error", err,
				)
			}
			return models.Deny(holder, action, models.ReasonCondition, err.Error()), nil
		}
		if !ok {
			return models.Deny(holder, action, models.ReasonCondition, "condition not satisfied"), nil
		}
	}

	return models.Allow(holder, action), nil
}

func (s *Service) lookup(ctx context.Context, holder id.Address) (*models.Profile, *idmodels.Record, error) {
	profile, err := s.store.FindProfile(ctx, holder)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read compliance profile")
	}
	record, err := s.identity.Get(ctx, holder)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, nil, err
	}
	return profile, record, nil
}

func (s *Service) rule(ctx context.Context, code id.Jurisdiction) (*models.JurisdictionRule, error) {
	if code == "" {
		return nil, nil
	}
	rule, err := s.store.FindJurisdictionRule(ctx, code)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read jurisdiction rule")
	}
	return rule, nil
}

// holderJurisdiction prefers the screened jurisdiction over the one on the
// identity credential.
func holderJurisdiction(profile *models.Profile, record *idmodels.Record) id.Jurisdiction {
	if profile != nil && profile.Jurisdiction != "" {
		return profile.Jurisdiction
	}
	if record != nil {
		return record.Jurisdiction
	}
	return ""
}

// RecordAction starts the holder's cooldown window for action. Callers invoke
// it only after the gated action succeeded.
func (s *Service) RecordAction(ctx context.Context, holder id.Address, action models.Action) error {
	cfg, err := s.store.FindActionConfig(ctx, action)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read action config")
	}
	if cfg != nil && cfg.Cooldown > 0 {
		if err := s.cooldowns.RecordAction(ctx, holder, action, requestcontext.Now(ctx), cfg.Cooldown); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record cooldown")
		}
	}
	s.emit(ctx, audit.EventActionRecorded, holder, "", string(action), "")
	return nil
}

// SetProfile records a screening result. A risk score at or above the
// threshold also places the holder on the global block list.
func (s *Service) SetProfile(ctx context.Context, in models.ProfileInput) (*models.Profile, error) {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return nil, err
	}
	if err := validateProfile(in); err != nil {
		return nil, err
	}

	var (
		profile     *models.Profile
		autoBlocked bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)
		existing, err := s.store.FindProfile(ctx, in.Holder)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read compliance profile")
		}
		blocked, err := s.store.IsBlocked(ctx, in.Holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read global block list")
		}

		before := ""
		profile = &models.Profile{}
		if existing != nil {
			before = describe(existing)
			profile.SanctionsLists = existing.SanctionsLists
		}
		profile.Holder = in.Holder
		profile.RestrictionLevel = in.RestrictionLevel
		profile.Jurisdiction = in.Jurisdiction
		profile.RiskScore = in.RiskScore
		profile.Reason = in.Reason
		profile.IsPEP = in.IsPEP
		profile.HasAdverseMedia = in.HasAdverseMedia
		profile.LastUpdated = now

		if err := s.store.SaveProfile(ctx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save compliance profile")
		}
		s.emit(ctx, audit.EventProfileSet, in.Holder, before, describe(profile), in.Reason)

		if in.RiskScore >= s.riskThreshold && !blocked {
			reason := fmt.Sprintf("risk score %d >= %d", in.RiskScore, s.riskThreshold)
			if err := s.store.SetBlock(ctx, models.GlobalBlock{Holder: in.Holder, Reason: reason, BlockedAt: now}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to block holder")
			}
			s.emit(ctx, audit.EventGlobalBlockSet, in.Holder, "unblocked", "blocked", reason)
			autoBlocked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if autoBlocked {
		s.metrics.IncAutoBlock()
	}
	s.logAudit(ctx, string(audit.EventProfileSet),
		"holder", in.Holder.String(),
		"restriction_level", in.RestrictionLevel.String(),
		"risk_score", in.RiskScore,
		"auto_blocked", autoBlocked,
	)
	return profile, nil
}

func validateProfile(in models.ProfileInput) error {
	if _, err := id.ParseAddress(in.Holder.String()); err != nil {
		return err
	}
	if in.RiskScore < 0 || in.RiskScore > models.MaxRiskScore {
		return dErrors.Newf(dErrors.CodeValidation, "holder=%s risk score must be within [0, %d]", in.Holder, models.MaxRiskScore)
	}
	if in.RestrictionLevel < models.RestrictionNone || in.RestrictionLevel > models.RestrictionBlocked {
		return dErrors.New(dErrors.CodeValidation, "restriction level out of range")
	}
	if in.Jurisdiction != "" {
		if _, err := id.ParseJurisdiction(in.Jurisdiction.String()); err != nil {
			return err
		}
	}
	return nil
}

func describe(p *models.Profile) string {
	return fmt.Sprintf("restriction=%s risk=%d jurisdiction=%s pep=%t adverse_media=%t",
		p.RestrictionLevel, p.RiskScore, p.Jurisdiction, p.IsPEP, p.HasAdverseMedia)
}

// SetGlobalBlock adds or removes a holder from the global block list.
func (s *Service) SetGlobalBlock(ctx context.Context, holder id.Address, blocked bool, reason string) error {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if blocked {
			err = s.store.SetBlock(ctx, models.GlobalBlock{Holder: holder, Reason: reason, BlockedAt: requestcontext.Now(ctx)})
		} else {
			err = s.store.RemoveBlock(ctx, holder)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update global block list")
		}
		after := "unblocked"
		if blocked {
			after = "blocked"
		}
		s.emit(ctx, audit.EventGlobalBlockSet, holder, "", after, reason)
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, string(audit.EventGlobalBlockSet), "holder", holder.String(), "blocked", blocked, "reason", reason)
	return nil
}

// AddToSanctionsList lists a screened holder on one sanctions list.
func (s *Service) AddToSanctionsList(ctx context.Context, holder id.Address, list models.SanctionsList) error {
	return s.updateSanctions(ctx, holder, list, true)
}

func (s *Service) RemoveFromSanctionsList(ctx context.Context, holder id.Address, list models.SanctionsList) error {
	return s.updateSanctions(ctx, holder, list, false)
}

func (s *Service) updateSanctions(ctx context.Context, holder id.Address, list models.SanctionsList, add bool) error {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return err
	}
	if _, err := models.ParseSanctionsList(string(list)); err != nil {
		return err
	}
	event := audit.EventSanctionsListed
	if !add {
		event = audit.EventSanctionsDelisted
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		profile, err := s.store.FindProfile(ctx, holder)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "holder=%s has no compliance profile", holder)
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read compliance profile")
		}
		changed := profile.RemoveList(list)
		if add {
			changed = profile.AddList(list)
		}
		if !changed {
			return nil
		}
		profile.LastUpdated = requestcontext.Now(ctx)
		if err := s.store.SaveProfile(ctx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save compliance profile")
		}
		s.emit(ctx, event, holder, "", string(list), "")
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, string(event), "holder", holder.String(), "list", string(list))
	return nil
}

// SetActionConfig replaces the configuration of one action.
func (s *Service) SetActionConfig(ctx context.Context, cfg models.ActionConfig) error {
	if err := s.auth.Require(ctx, access.Admin); err != nil {
		return err
	}
	if err := s.validateActionConfig(&cfg); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.SaveActionConfig(ctx, &cfg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save action config")
		}
		s.emitEntity(ctx, audit.EventActionConfigSet, "action", string(cfg.Action), "")
		return nil
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, string(audit.EventActionConfigSet),
		"action", string(cfg.Action),
		"enabled", cfg.Enabled,
		"cooldown", cfg.Cooldown,
	)
	return nil
}

func (s *Service) validateActionConfig(cfg *models.ActionConfig) error {
	action, err := models.ParseAction(string(cfg.Action))
	if err != nil {
		return err
	}
	cfg.Action = action
	if cfg.MaxRestriction < models.RestrictionNone || cfg.MaxRestriction > models.RestrictionRestricted {
		return dErrors.Newf(dErrors.CodeValidation, "action=%s max restriction must be None, Monitoring or Restricted", action)
	}
	if cfg.Cooldown < 0 {
		return dErrors.Newf(dErrors.CodeValidation, "action=%s cooldown cannot be negative", action)
	}
	for i, j := range cfg.AllowedJurisdictions {
		parsed, err := id.ParseJurisdiction(j.String())
		if err != nil {
			return err
		}
		cfg.AllowedJurisdictions[i] = parsed
	}
	cfg.Condition = strings.TrimSpace(cfg.Condition)
	if cfg.Condition != "" {
		if err := s.conditions.Compile(cfg.Condition); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("action=%s invalid condition", action))
		}
	}
	return nil
}

// SetJurisdictionRule creates or updates a rule. The participant counter is
// carried over from the stored rule and never reset.
func (s *Service) SetJurisdictionRule(ctx context.Context, rule models.JurisdictionRule) (*models.JurisdictionRule, error) {
	if err := s.auth.Require(ctx, access.ComplianceOfficer); err != nil {
		return nil, err
	}
	if err := validateRule(&rule); err != nil {
		return nil, err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.rule(ctx, rule.Code)
		if err != nil {
			return err
		}
		rule.CurrentParticipants = 0
		if existing != nil {
			rule.CurrentParticipants = existing.CurrentParticipants
		}
		if err := s.store.SaveJurisdictionRule(ctx, &rule); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save jurisdiction rule")
		}
		s.emitEntity(ctx, audit.EventJurisdictionRuleSet, "jurisdiction", rule.Code.String(), "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, string(audit.EventJurisdictionRuleSet),
		"jurisdiction", rule.Code.String(),
		"allowed", rule.Allowed,
		"max_participants", rule.MaxParticipants,
	)
	return &rule, nil
}

func validateRule(rule *models.JurisdictionRule) error {
	code, err := id.ParseJurisdiction(rule.Code.String())
	if err != nil {
		return err
	}
	rule.Code = code
	if rule.PerParticipantCapUSD.IsNegative() {
		return dErrors.Newf(dErrors.CodeValidation, "jurisdiction=%s per-participant cap cannot be negative", code)
	}
	return nil
}

// Seed loads action configuration and jurisdiction rules from the program
// file at startup. It bypasses capability checks and must not be exposed.
func (s *Service) Seed(ctx context.Context, configs []models.ActionConfig, rules []models.JurisdictionRule) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for i := range configs {
			cfg := configs[i]
			if err := s.validateActionConfig(&cfg); err != nil {
				return err
			}
			if err := s.store.SaveActionConfig(ctx, &cfg); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed action config")
			}
		}
		for i := range rules {
			rule := rules[i]
			if err := validateRule(&rule); err != nil {
				return err
			}
			existing, err := s.rule(ctx, rule.Code)
			if err != nil {
				return err
			}
			if existing != nil {
				rule.CurrentParticipants = existing.CurrentParticipants
			}
			if err := s.store.SaveJurisdictionRule(ctx, &rule); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed jurisdiction rule")
			}
		}
		return nil
	})
}

// CheckAdmission verifies that holder could be admitted with amountUSD on top
// of priorUSD already committed: the jurisdiction participant limit applies
// to first-time participants only, the per-participant cap to everyone.
func (s *Service) CheckAdmission(ctx context.Context, holder id.Address, priorUSD, amountUSD decimal.Decimal) error {
	_, _, _, err := s.admission(ctx, holder, priorUSD, amountUSD)
	return err
}

// AdmitParticipant performs CheckAdmission and, for a first-time participant,
// records the holder and increments the jurisdiction's participant counter.
func (s *Service) AdmitParticipant(ctx context.Context, holder id.Address, priorUSD, amountUSD decimal.Decimal) error {
	var admitted id.Jurisdiction
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rule, isNew, jurisdiction, err := s.admission(ctx, holder, priorUSD, amountUSD)
		if err != nil || !isNew {
			return err
		}
		if err := s.store.AddParticipant(ctx, holder, jurisdiction, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record participant")
		}
		if rule != nil {
			rule.CurrentParticipants++
			if err := s.store.SaveJurisdictionRule(ctx, rule); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update jurisdiction rule")
			}
		}
		s.emit(ctx, audit.EventParticipantAdmitted, holder, "", jurisdiction.String(), "")
		admitted = jurisdiction
		return nil
	})
	if err != nil {
		return err
	}
	if admitted != "" {
		s.metrics.IncAdmitted(admitted.String())
	}
	return nil
}

func (s *Service) admission(ctx context.Context, holder id.Address, priorUSD, amountUSD decimal.Decimal) (*models.JurisdictionRule, bool, id.Jurisdiction, error) {
	participant, err := s.store.IsParticipant(ctx, holder)
	if err != nil {
		return nil, false, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read participants")
	}
	profile, record, err := s.lookup(ctx, holder)
	if err != nil {
		return nil, false, "", err
	}
	jurisdiction := holderJurisdiction(profile, record)
	rule, err := s.rule(ctx, jurisdiction)
	if err != nil {
		return nil, false, "", err
	}
	if rule != nil {
		if !participant && rule.MaxParticipants > 0 && rule.CurrentParticipants >= rule.MaxParticipants {
			return nil, false, "", dErrors.Newf(dErrors.CodeCapacityExceeded,
				"holder=%s jurisdiction=%s participant limit %d reached", holder, jurisdiction, rule.MaxParticipants)
		}
		if rule.PerParticipantCapUSD.IsPositive() && priorUSD.Add(amountUSD).GreaterThan(rule.PerParticipantCapUSD) {
			return nil, false, "", dErrors.Newf(dErrors.CodeAboveMaximum,
				"holder=%s jurisdiction=%s per-participant cap exceeded", holder, jurisdiction)
		}
	}
	return rule, !participant, jurisdiction, nil
}

func (s *Service) GetProfile(ctx context.Context, holder id.Address) (*models.Profile, error) {
	profile, err := s.store.FindProfile(ctx, holder)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "holder=%s has no compliance profile", holder)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read compliance profile")
	}
	return profile, nil
}

func (s *Service) IsBlocked(ctx context.Context, holder id.Address) (bool, error) {
	blocked, err := s.store.IsBlocked(ctx, holder)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read global block list")
	}
	return blocked, nil
}

func (s *Service) ListActionConfigs(ctx context.Context) ([]*models.ActionConfig, error) {
	configs, err := s.store.ListActionConfigs(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list action configs")
	}
	return configs, nil
}

func (s *Service) GetJurisdictionRule(ctx context.Context, code id.Jurisdiction) (*models.JurisdictionRule, error) {
	rule, err := s.rule(ctx, code)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "jurisdiction=%s has no rule", code)
	}
	return rule, nil
}

func (s *Service) emit(ctx context.Context, event audit.AuditEvent, holder id.Address, before, after, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   "holder",
		EntityID: holder.String(),
		Before:   before,
		After:    after,
		Reason:   reason,
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) emitEntity(ctx context.Context, event audit.AuditEvent, entity, entityID, reason string) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:   string(event),
		Entity:   entity,
		EntityID: entityID,
		Reason:   reason,
	}); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	args := append(attributes,
		"event", event,
		"log_type", "audit",
		"actor", requestcontext.Actor(ctx).String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logger.InfoContext(ctx, event, args...)
}
