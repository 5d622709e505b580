package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

var (
	bps       = decimal.NewFromInt(id.BasisPoints)
	saturated = decimal.NewFromUint64(SaturatedRatio)
)

// Contribution is a fresh source's latest report and its configured weight.
type Contribution struct {
	Source    id.SourceID
	WeightBps uint64
	Report    Report
}

type Params struct {
	MinSources      int
	MaxDeviationBps uint64
}

// SourceRatio returns floor(reserve * 10000 / issued), saturating when
// nothing has been issued or the ratio does not fit.
func SourceRatio(reserve, issued decimal.Decimal) uint64 {
	if issued.IsZero() {
		return SaturatedRatio
	}
	return clampRatio(id.FloorDiv(reserve.Mul(bps), issued))
}

func clampRatio(d decimal.Decimal) uint64 {
	if d.GreaterThanOrEqual(saturated) {
		return SaturatedRatio
	}
	return d.BigInt().Uint64()
}

// Median of ratios; for an even count the floor of the mean of the two
// middle values.
func Median(ratios []uint64) uint64 {
	if len(ratios) == 0 {
		return 0
	}
	sorted := slices.Clone(ratios)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	a, b := sorted[mid-1], sorted[mid]
	return a/2 + b/2 + (a%2+b%2)/2
}

// Deviates reports whether ratio is more than maxDeviationBps away from the
// median, relative to the median. With a zero median every positive ratio
// deviates.
func Deviates(ratio, median, maxDeviationBps uint64) bool {
	if median == 0 {
		return ratio > 0
	}
	r := decimal.NewFromUint64(ratio)
	m := decimal.NewFromUint64(median)
	diff := r.Sub(m).Abs()
	return diff.Mul(bps).GreaterThan(decimal.NewFromUint64(maxDeviationBps).Mul(m))
}

// Compute aggregates contributions: every source's ratio is compared to the
// median of all fresh sources, deviating sources are dropped, and the rest
// are combined as weightedReserve * 10000 / weightedIssued. It fails with
// CodeInsufficientSources when fewer than MinSources remain at either step.
func Compute(contribs []Contribution, p Params, now time.Time) (*Aggregate, error) {
	if len(contribs) < p.MinSources {
		return nil, dErrors.Newf(dErrors.CodeInsufficientSources,
			"fresh sources %d below minimum %d", len(contribs), p.MinSources)
	}

	ratios := make([]uint64, len(contribs))
	for i, c := range contribs {
		ratios[i] = SourceRatio(c.Report.ReserveQuantity, c.Report.IssuedQuantity)
	}
	median := Median(ratios)

	var (
		included []Contribution
		excluded []id.SourceID
	)
	for i, c := range contribs {
		if Deviates(ratios[i], median, p.MaxDeviationBps) {
			excluded = append(excluded, c.Source)
			continue
		}
		included = append(included, c)
	}
	if len(included) < p.MinSources {
		return nil, dErrors.Newf(dErrors.CodeInsufficientSources,
			"sources %d below minimum %d after excluding %v", len(included), p.MinSources, excluded)
	}

	var (
		reserveW = decimal.Zero
		issuedW  = decimal.Zero
		weights  = decimal.Zero
		oldest   time.Time
	)
	for _, c := range included {
		w := decimal.NewFromUint64(c.WeightBps)
		reserveW = reserveW.Add(c.Report.ReserveQuantity.Mul(w))
		issuedW = issuedW.Add(c.Report.IssuedQuantity.Mul(w))
		weights = weights.Add(w)
		if oldest.IsZero() || c.Report.Timestamp.Before(oldest) {
			oldest = c.Report.Timestamp
		}
	}
	if weights.IsZero() {
		return nil, dErrors.New(dErrors.CodeInsufficientSources, "included sources carry no weight")
	}

	agg := &Aggregate{
		ReserveQuantity:  id.FloorDiv(reserveW, weights),
		IssuedQuantity:   id.FloorDiv(issuedW, weights),
		CoverageRatioBps: SaturatedRatio,
		Timestamp:        oldest,
		SourceCount:      len(included),
		Excluded:         excluded,
		ComputedAt:       now,
	}
	if !issuedW.IsZero() {
		agg.CoverageRatioBps = clampRatio(id.FloorDiv(reserveW.Mul(bps), issuedW))
	}
	return agg, nil
}
