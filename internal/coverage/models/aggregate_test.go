package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func contribution(src string, reserve, issued int64, weight uint64, age time.Duration) Contribution {
	return Contribution{
		Source:    id.SourceID(src),
		WeightBps: weight,
		Report: Report{
			SourceID:        id.SourceID(src),
			ReserveQuantity: decimal.NewFromInt(reserve),
			IssuedQuantity:  decimal.NewFromInt(issued),
			Timestamp:       now.Add(-age),
		},
	}
}

var defaults = Params{MinSources: 2, MaxDeviationBps: 500}

// Three sources, the third more than 5% above the median: it is dropped and
// the remaining pair averages to 99%.
func TestCompute_ExcludesDeviatingSource(t *testing.T) {
	agg, err := Compute([]Contribution{
		contribution("vault-custodian", 100, 100, 4000, time.Hour),
		contribution("independent-auditor", 98, 100, 4000, 2*time.Hour),
		contribution("oracle-network", 150, 100, 2000, 30*time.Minute),
	}, defaults, now)
	require.NoError(t, err)

	assert.Equal(t, uint64(9900), agg.CoverageRatioBps)
	assert.Equal(t, []id.SourceID{"oracle-network"}, agg.Excluded)
	assert.Equal(t, 2, agg.SourceCount)
	assert.Equal(t, now.Add(-2*time.Hour), agg.Timestamp)
	assert.True(t, agg.ReserveQuantity.Equal(decimal.NewFromInt(99)))
	assert.True(t, agg.IssuedQuantity.Equal(decimal.NewFromInt(100)))
}

func TestCompute_InsufficientSources(t *testing.T) {
	t.Run("too few fresh sources", func(t *testing.T) {
		_, err := Compute([]Contribution{contribution("a", 100, 100, 5000, 0)}, defaults, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientSources))
	})

	t.Run("exclusions drop below minimum", func(t *testing.T) {
		_, err := Compute([]Contribution{
			contribution("a", 100, 100, 5000, 0),
			contribution("b", 200, 100, 5000, 0),
		}, defaults, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientSources))
	})
}

func TestCompute_WeightsNeedNotSumToFullScale(t *testing.T) {
	agg, err := Compute([]Contribution{
		contribution("a", 102, 100, 1, 0),
		contribution("b", 100, 100, 3, 0),
	}, defaults, now)
	require.NoError(t, err)
	// (102*1 + 100*3) * 10000 / (100*4) = 10050
	assert.Equal(t, uint64(10050), agg.CoverageRatioBps)
}

func TestCompute_NothingIssued(t *testing.T) {
	agg, err := Compute([]Contribution{
		contribution("a", 100, 0, 5000, 0),
		contribution("b", 120, 0, 5000, 0),
	}, defaults, now)
	require.NoError(t, err)
	assert.Equal(t, SaturatedRatio, agg.CoverageRatioBps)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, uint64(0), Median(nil))
	assert.Equal(t, uint64(10000), Median([]uint64{15000, 9800, 10000}))
	assert.Equal(t, uint64(9900), Median([]uint64{9800, 10000}))
	assert.Equal(t, uint64(2), Median([]uint64{1, 4}))
	assert.Equal(t, SaturatedRatio, Median([]uint64{SaturatedRatio, SaturatedRatio}))
}

func TestDeviates(t *testing.T) {
	assert.False(t, Deviates(10500, 10000, 500), "exactly at the bound is kept")
	assert.True(t, Deviates(10501, 10000, 500))
	assert.True(t, Deviates(9499, 10000, 500))
	assert.True(t, Deviates(1, 0, 500))
	assert.False(t, Deviates(0, 0, 500))
}

func TestSourceStatus(t *testing.T) {
	src := Source{ID: "a", Active: true}
	fresh := &Report{Timestamp: now.Add(-time.Hour)}
	old := &Report{Timestamp: now.Add(-25 * time.Hour)}

	assert.Equal(t, SourceActive, src.Status(fresh, now, 24*time.Hour))
	assert.Equal(t, SourceStale, src.Status(old, now, 24*time.Hour))
	assert.Equal(t, SourceStale, src.Status(nil, now, 24*time.Hour))
	assert.Equal(t, SourceInactive, Source{ID: "a"}.Status(fresh, now, 24*time.Hour))
}
