//go:build property

package models_test

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"aurum/internal/coverage/models"
	id "aurum/pkg/domain"
)

var at = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func build(reserves, issued []uint32, weights []uint16) []models.Contribution {
	n := min(len(reserves), len(issued), len(weights))
	out := make([]models.Contribution, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Contribution{
			Source:    id.SourceID(fmt.Sprintf("src-%d", i)),
			WeightBps: uint64(weights[i]) + 1,
			Report: models.Report{
				ReserveQuantity: decimal.NewFromInt(int64(reserves[i])),
				IssuedQuantity:  decimal.NewFromInt(int64(issued[i]) + 1),
				Timestamp:       at.Add(-time.Duration(i) * time.Minute),
			},
		})
	}
	return out
}

// TestComputeBounds: the aggregate ratio never leaves the range spanned by
// the included sources, and every source is either included or excluded.
func TestComputeBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	params := models.Params{MinSources: 2, MaxDeviationBps: 500}

	properties.Property("ratio within included source ratios", prop.ForAll(
		func(reserves, issued []uint32, weights []uint16) bool {
			contribs := build(reserves, issued, weights)
			agg, err := models.Compute(contribs, params, at)
			if err != nil {
				return true
			}
			if agg.SourceCount+len(agg.Excluded) != len(contribs) {
				return false
			}
			lo, hi := models.SaturatedRatio, uint64(0)
			for _, c := range contribs {
				if slices.Contains(agg.Excluded, c.Source) {
					continue
				}
				r := models.SourceRatio(c.Report.ReserveQuantity, c.Report.IssuedQuantity)
				lo = min(lo, r)
				hi = max(hi, r)
			}
			return agg.CoverageRatioBps >= lo && agg.CoverageRatioBps <= hi
		},
		gen.SliceOfN(5, gen.UInt32Range(0, 1_000_000)),
		gen.SliceOfN(5, gen.UInt32Range(900_000, 1_000_000)),
		gen.SliceOfN(5, gen.UInt16()),
	))

	properties.Property("order of sources does not matter", prop.ForAll(
		func(reserves, issued []uint32, weights []uint16) bool {
			contribs := build(reserves, issued, weights)
			a, errA := models.Compute(contribs, params, at)
			slices.Reverse(contribs)
			b, errB := models.Compute(contribs, params, at)
			if errA != nil || errB != nil {
				return (errA == nil) == (errB == nil)
			}
			return a.CoverageRatioBps == b.CoverageRatioBps && a.SourceCount == b.SourceCount
		},
		gen.SliceOfN(4, gen.UInt32Range(0, 1_000_000)),
		gen.SliceOfN(4, gen.UInt32Range(900_000, 1_000_000)),
		gen.SliceOfN(4, gen.UInt16()),
	))

	properties.TestingRun(t)
}
