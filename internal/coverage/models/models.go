// Package models holds reserve sources, their attestations and the
// aggregated coverage ratio derived from them.
package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
)

// SaturatedRatio is the coverage of a source that reports reserves but no
// issued tokens.
const SaturatedRatio uint64 = math.MaxUint64

// Source is a registered attestation source.
type Source struct {
	ID        id.SourceID
	Reporter  id.Address
	WeightBps uint64
	Active    bool
}

type SourceStatus string

const (
	SourceInactive SourceStatus = "inactive"
	SourceActive   SourceStatus = "active"
	SourceStale    SourceStatus = "stale"
)

// Status derives the lifecycle state: an active source without a report
// within maxAge is stale.
func (s Source) Status(latest *Report, now time.Time, maxAge time.Duration) SourceStatus {
	if !s.Active {
		return SourceInactive
	}
	if latest == nil || !latest.FreshAt(now, maxAge) {
		return SourceStale
	}
	return SourceActive
}

// Report is one attestation of reserve and issued quantities.
type Report struct {
	SourceID         id.SourceID
	ReserveQuantity  decimal.Decimal
	IssuedQuantity   decimal.Decimal
	CoverageRatioBps uint64
	Timestamp        time.Time
	Reporter         id.Address
}

func (r *Report) FreshAt(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.Timestamp) <= maxAge
}

// Aggregate is the weighted coverage over the fresh, non-deviating sources
// of one aggregation round. Quantities are weight-normalized.
type Aggregate struct {
	ReserveQuantity  decimal.Decimal
	IssuedQuantity   decimal.Decimal
	CoverageRatioBps uint64
	// Timestamp is the oldest report that contributed.
	Timestamp   time.Time
	SourceCount int
	Excluded    []id.SourceID
	ComputedAt  time.Time
}

// DailySnapshot is the last aggregate of a UTC day.
type DailySnapshot struct {
	Day              time.Time
	ReserveQuantity  decimal.Decimal
	IssuedQuantity   decimal.Decimal
	CoverageRatioBps uint64
	AsOf             time.Time
}

// Day truncates t to its UTC date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Health is the oracle's answer to "may the ledger issue or pay out".
type Health struct {
	Healthy  bool
	RatioBps uint64
	Halted   bool
	Reason   string
}

const (
	HealthReasonHalted      = "emergency_halt"
	HealthReasonNoAggregate = "no_aggregate"
	HealthReasonStale       = "aggregate_stale"
	HealthReasonBelowFloor  = "below_floor"
)

// Submission is the outcome of an accepted report: the aggregate it produced,
// or the reason aggregation failed. The report is kept either way.
type Submission struct {
	Report           Report
	Aggregate        *Aggregate
	AggregationError error
}

// SourceView is a source with its derived status and latest report.
type SourceView struct {
	Source Source
	Status SourceStatus
	Latest *Report
}
