package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	id "aurum/pkg/domain"
)

// Program holds the ledger parameters of one private placement: system
// principals, capability grants, allow-lists and the numeric constants of
// every module. It is loaded from a YAML file on top of DefaultProgram.
type Program struct {
	Name         string                  `yaml:"name"`
	Principals   Principals              `yaml:"principals"`
	Roles        map[string][]id.Address `yaml:"roles"`
	Identity     IdentityProgram         `yaml:"identity"`
	Compliance   ComplianceProgram       `yaml:"compliance"`
	Coverage     CoverageProgram         `yaml:"coverage"`
	Deposit      DepositProgram          `yaml:"deposit"`
	Subscription SubscriptionProgram     `yaml:"subscription"`
	Token        TokenProgram            `yaml:"token"`
	Yield        YieldProgram            `yaml:"yield"`
}

// Principals are the system accounts the ledger acts as.
type Principals struct {
	// SubscriptionLedger is the sole mint authority of the gold token.
	SubscriptionLedger id.Address `yaml:"subscription_ledger"`
	// Treasury holds the tokens paid out as yield.
	Treasury id.Address `yaml:"treasury"`
	// Keeper is the actor the automation loop runs as.
	Keeper id.Address `yaml:"keeper"`
}

type IdentityProgram struct {
	Providers       []string          `yaml:"providers"`
	Jurisdictions   []id.Jurisdiction `yaml:"jurisdictions"`
	DefaultValidity time.Duration     `yaml:"default_validity"`
}

type ComplianceProgram struct {
	GlobalRiskThreshold int                   `yaml:"global_risk_threshold"`
	Actions             []ActionProgram       `yaml:"actions"`
	Jurisdictions       []JurisdictionProgram `yaml:"jurisdictions"`
}

// ActionProgram configures one gated action (SUBSCRIBE, MATURE, TRANSFER, CLAIM).
type ActionProgram struct {
	Name                      string            `yaml:"name"`
	Enabled                   bool              `yaml:"enabled"`
	RequireKYC                bool              `yaml:"require_kyc"`
	RequireSanctionsScreening bool              `yaml:"require_sanctions_screening"`
	MaxRestriction            string            `yaml:"max_restriction"`
	Cooldown                  time.Duration     `yaml:"cooldown"`
	AllowedJurisdictions      []id.Jurisdiction `yaml:"allowed_jurisdictions"`
	// Condition is an optional CEL expression that must evaluate to true.
	Condition string `yaml:"condition"`
}

type JurisdictionProgram struct {
	Code                 id.Jurisdiction `yaml:"code"`
	Allowed              bool            `yaml:"allowed"`
	MaxParticipants      uint64          `yaml:"max_participants"`
	PerParticipantCapUSD decimal.Decimal `yaml:"per_participant_cap_usd"`
	RequiresEnhancedKYC  bool            `yaml:"requires_enhanced_kyc"`
}

type CoverageProgram struct {
	MaxAge          time.Duration   `yaml:"max_age"`
	MinSources      int             `yaml:"min_sources"`
	MaxDeviationBps uint64          `yaml:"max_deviation_bps"`
	FloorBps        uint64          `yaml:"floor_bps"`
	Sources         []SourceProgram `yaml:"sources"`
}

type SourceProgram struct {
	ID        id.SourceID `yaml:"id"`
	Reporter  id.Address  `yaml:"reporter"`
	WeightBps uint64      `yaml:"weight_bps"`
	Active    bool        `yaml:"active"`
}

type DepositProgram struct {
	MaxProofAge time.Duration     `yaml:"max_proof_age"`
	FutureSkew  time.Duration     `yaml:"future_skew"`
	FeeBps      int64             `yaml:"fee_bps"`
	Operators   []OperatorProgram `yaml:"operators"`
	Tokens      []TokenBounds     `yaml:"tokens"`
}

// OperatorProgram is a trusted bridge operator. PublicKey is a base64
// encoded ed25519 public key.
type OperatorProgram struct {
	Address   id.Address `yaml:"address"`
	PublicKey string     `yaml:"public_key"`
}

// TokenBounds bounds the source amount accepted for one token on one chain.
// Stable tokens are credited at their attested USD amount; the others go
// through the price feed.
type TokenBounds struct {
	Chain  string          `yaml:"chain"`
	Token  string          `yaml:"token"`
	Min    decimal.Decimal `yaml:"min"`
	Max    decimal.Decimal `yaml:"max"`
	Stable bool            `yaml:"stable"`
}

type SubscriptionProgram struct {
	EntryPriceUSD        decimal.Decimal `yaml:"entry_price_usd"`
	MinEntryUSD          decimal.Decimal `yaml:"min_entry_usd"`
	ProgramCapUnits      decimal.Decimal `yaml:"program_cap_units"`
	CliffDuration        time.Duration   `yaml:"cliff_duration"`
	ExtendedHoldDuration time.Duration   `yaml:"extended_hold_duration"`
}

type TokenProgram struct {
	TransferCompliance bool `yaml:"transfer_compliance"`
}

type YieldProgram struct {
	MinRateBps     int64         `yaml:"min_rate_bps"`
	MaxRateBps     int64         `yaml:"max_rate_bps"`
	DefaultRateBps int64         `yaml:"default_rate_bps"`
	EpochDuration  time.Duration `yaml:"epoch_duration"`
	TriggerWindow  time.Duration `yaml:"trigger_window"`
	// Basis is token_holdings or allocated_units.
	Basis        string    `yaml:"basis"`
	FirstEpochAt time.Time `yaml:"first_epoch_at"`
}

const day = 24 * time.Hour

// DefaultProgram returns the program constants without principals, roles,
// sources or operators. Those must come from the program file.
func DefaultProgram() Program {
	return Program{
		Name: "aurum",
		Identity: IdentityProgram{
			DefaultValidity: 365 * day,
		},
		Compliance: ComplianceProgram{
			GlobalRiskThreshold: 700,
			Actions: []ActionProgram{
				{Name: "SUBSCRIBE", Enabled: true, RequireKYC: true, RequireSanctionsScreening: true, MaxRestriction: "Monitoring"},
				{Name: "MATURE", Enabled: true, RequireKYC: true, RequireSanctionsScreening: true, MaxRestriction: "Monitoring"},
				{Name: "TRANSFER", Enabled: true, RequireKYC: true, MaxRestriction: "Monitoring"},
				{Name: "CLAIM", Enabled: true, RequireKYC: true, RequireSanctionsScreening: true, MaxRestriction: "Monitoring"},
			},
		},
		Coverage: CoverageProgram{
			MaxAge:          day,
			MinSources:      2,
			MaxDeviationBps: 500,
			FloorBps:        10000,
		},
		Deposit: DepositProgram{
			MaxProofAge: day,
			FutureSkew:  5 * time.Minute,
		},
		Subscription: SubscriptionProgram{
			EntryPriceUSD:        decimal.RequireFromString("20000e18"),
			MinEntryUSD:          decimal.RequireFromString("20000e18"),
			ProgramCapUnits:      decimal.NewFromInt(50000),
			CliffDuration:        150 * day,
			ExtendedHoldDuration: 1825 * day,
		},
		Yield: YieldProgram{
			MinRateBps:     10,
			MaxRateBps:     1000,
			DefaultRateBps: 800,
			EpochDuration:  30 * day,
			TriggerWindow:  6 * time.Hour,
			Basis:          "token_holdings",
		},
	}
}

// LoadProgram reads a YAML program file over DefaultProgram and validates it.
func LoadProgram(path string) (Program, error) {
	p := DefaultProgram()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("read program %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Program{}, fmt.Errorf("parse program %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Program{}, fmt.Errorf("program %s: %w", path, err)
	}
	return p, nil
}

// Validate checks the cross-field constraints the modules rely on.
func (p Program) Validate() error {
	var errs []error
	for name, addr := range map[string]id.Address{
		"subscription_ledger": p.Principals.SubscriptionLedger,
		"treasury":            p.Principals.Treasury,
		"keeper":              p.Principals.Keeper,
	} {
		if _, err := id.ParseAddress(addr.String()); err != nil {
			errs = append(errs, fmt.Errorf("principals.%s: %w", name, err))
		}
	}
	if p.Compliance.GlobalRiskThreshold <= 0 || p.Compliance.GlobalRiskThreshold > 1000 {
		errs = append(errs, errors.New("compliance.global_risk_threshold must be in (0, 1000]"))
	}
	if p.Coverage.MinSources < 1 {
		errs = append(errs, errors.New("coverage.min_sources must be at least 1"))
	}
	if p.Coverage.MaxAge <= 0 {
		errs = append(errs, errors.New("coverage.max_age must be positive"))
	}
	if p.Deposit.FeeBps < 0 || p.Deposit.FeeBps >= id.BasisPoints {
		errs = append(errs, errors.New("deposit.fee_bps must be in [0, 10000)"))
	}
	for _, t := range p.Deposit.Tokens {
		if !t.Max.IsZero() && t.Max.LessThan(t.Min) {
			errs = append(errs, fmt.Errorf("deposit token %s/%s: max below min", t.Chain, t.Token))
		}
	}
	if !p.Subscription.EntryPriceUSD.IsPositive() {
		errs = append(errs, errors.New("subscription.entry_price_usd must be positive"))
	}
	if p.Subscription.MinEntryUSD.LessThan(p.Subscription.EntryPriceUSD) {
		errs = append(errs, errors.New("subscription.min_entry_usd must be at least the entry price"))
	}
	if p.Yield.MinRateBps < 0 || p.Yield.MinRateBps > p.Yield.MaxRateBps || p.Yield.MaxRateBps > id.BasisPoints {
		errs = append(errs, errors.New("yield rate bounds must satisfy 0 <= min <= max <= 10000"))
	}
	if p.Yield.DefaultRateBps < p.Yield.MinRateBps || p.Yield.DefaultRateBps > p.Yield.MaxRateBps {
		errs = append(errs, errors.New("yield.default_rate_bps outside [min_rate_bps, max_rate_bps]"))
	}
	if p.Yield.EpochDuration <= 0 {
		errs = append(errs, errors.New("yield.epoch_duration must be positive"))
	}
	switch p.Yield.Basis {
	case "token_holdings", "allocated_units":
	default:
		errs = append(errs, fmt.Errorf("yield.basis %q is not token_holdings or allocated_units", p.Yield.Basis))
	}
	return errors.Join(errs...)
}
