package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"aurum/internal/access"
	compliancemodels "aurum/internal/compliance/models"
	coveragemodels "aurum/internal/coverage/models"
	coverageservice "aurum/internal/coverage/service"
	depositmodels "aurum/internal/deposit/models"
	"aurum/internal/platform/config"
	subscriptionservice "aurum/internal/subscription/service"
	yieldmodels "aurum/internal/yield/models"
	yieldservice "aurum/internal/yield/service"
	id "aurum/pkg/domain"
	pkgstrings "aurum/pkg/platform/strings"
)

// grants maps the program roles to capabilities. The keeper principal always
// holds Keeper and the treasury principal always holds Treasury.
func grants(p config.Program) (map[access.Capability][]id.Address, error) {
	out := make(map[access.Capability][]id.Address, len(p.Roles)+2)
	for name, actors := range p.Roles {
		c, err := access.ParseCapability(name)
		if err != nil {
			return nil, fmt.Errorf("roles.%s: %w", name, err)
		}
		out[c] = append(out[c], actors...)
	}
	out[access.Keeper] = append(out[access.Keeper], p.Principals.Keeper)
	out[access.Treasury] = append(out[access.Treasury], p.Principals.Treasury)
	for c, actors := range out {
		out[c] = pkgstrings.Dedupe(actors, nil)
	}
	return out, nil
}

func complianceSeed(p config.ComplianceProgram) ([]compliancemodels.ActionConfig, []compliancemodels.JurisdictionRule, error) {
	configs := make([]compliancemodels.ActionConfig, 0, len(p.Actions))
	for _, a := range p.Actions {
		action, err := compliancemodels.ParseAction(a.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("compliance action %q: %w", a.Name, err)
		}
		maxRestriction, err := compliancemodels.ParseRestrictionLevel(a.MaxRestriction)
		if err != nil {
			return nil, nil, fmt.Errorf("compliance action %s: %w", action, err)
		}
		configs = append(configs, compliancemodels.ActionConfig{
			Action:                    action,
			Enabled:                   a.Enabled,
			RequireKYC:                a.RequireKYC,
			RequireSanctionsScreening: a.RequireSanctionsScreening,
			MaxRestriction:            maxRestriction,
			Cooldown:                  a.Cooldown,
			AllowedJurisdictions:      a.AllowedJurisdictions,
			Condition:                 a.Condition,
		})
	}
	rules := make([]compliancemodels.JurisdictionRule, 0, len(p.Jurisdictions))
	for _, j := range p.Jurisdictions {
		rules = append(rules, compliancemodels.JurisdictionRule{
			Code:                 j.Code,
			Allowed:              j.Allowed,
			MaxParticipants:      j.MaxParticipants,
			PerParticipantCapUSD: j.PerParticipantCapUSD,
			RequiresEnhancedKYC:  j.RequiresEnhancedKYC,
		})
	}
	return configs, rules, nil
}

func coverageParams(p config.CoverageProgram) coverageservice.Params {
	return coverageservice.Params{
		MaxAge:          p.MaxAge,
		MinSources:      p.MinSources,
		MaxDeviationBps: p.MaxDeviationBps,
		FloorBps:        p.FloorBps,
	}
}

func coverageSources(p config.CoverageProgram) []coveragemodels.Source {
	out := make([]coveragemodels.Source, 0, len(p.Sources))
	for _, s := range p.Sources {
		out = append(out, coveragemodels.Source{
			ID:        s.ID,
			Reporter:  s.Reporter,
			WeightBps: s.WeightBps,
			Active:    s.Active,
		})
	}
	return out
}

func depositSeed(p config.DepositProgram) ([]depositmodels.Operator, []depositmodels.TokenConfig, error) {
	operators := make([]depositmodels.Operator, 0, len(p.Operators))
	for _, o := range p.Operators {
		key, err := base64.StdEncoding.DecodeString(o.PublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("operator %s: decode public key: %w", o.Address, err)
		}
		if len(key) != ed25519.PublicKeySize {
			return nil, nil, fmt.Errorf("operator %s: public key is %d bytes, want %d", o.Address, len(key), ed25519.PublicKeySize)
		}
		operators = append(operators, depositmodels.Operator{Address: o.Address, PublicKey: ed25519.PublicKey(key)})
	}
	tokens := make([]depositmodels.TokenConfig, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		tokens = append(tokens, depositmodels.TokenConfig{
			Chain:  t.Chain,
			Token:  t.Token,
			Min:    t.Min,
			Max:    t.Max,
			Stable: t.Stable,
		})
	}
	return operators, tokens, nil
}

func subscriptionParams(p config.SubscriptionProgram) subscriptionservice.Params {
	return subscriptionservice.Params{
		EntryPriceUSD:        p.EntryPriceUSD,
		MinEntryUSD:          p.MinEntryUSD,
		ProgramCapUnits:      p.ProgramCapUnits,
		CliffDuration:        p.CliffDuration,
		ExtendedHoldDuration: p.ExtendedHoldDuration,
	}
}

func yieldParams(p config.YieldProgram) (yieldservice.Params, error) {
	policy, err := yieldmodels.ParseBasisPolicy(p.Basis)
	if err != nil {
		return yieldservice.Params{}, err
	}
	return yieldservice.Params{
		MinRateBps:     p.MinRateBps,
		MaxRateBps:     p.MaxRateBps,
		DefaultRateBps: p.DefaultRateBps,
		EpochDuration:  p.EpochDuration,
		TriggerWindow:  p.TriggerWindow,
		Genesis:        p.FirstEpochAt,
		Basis:          policy,
	}, nil
}
