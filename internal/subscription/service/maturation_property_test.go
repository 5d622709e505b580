//go:build property

package service

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"aurum/internal/subscription/models"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

func subscribed(mode models.LockMode) (*testLedger, *models.Subscription, bool) {
	l, err := newTestLedger()
	if err != nil {
		return nil, nil, false
	}
	if err := l.fund(alice, usd20k, t0); err != nil {
		return nil, nil, false
	}
	sub, err := l.svc.Subscribe(testutil.Ctx(alice, t0), models.Intent{
		Holder:          alice,
		USDAmount:       usd20k,
		LockMode:        mode,
		DocumentHash:    doc(1),
		DocumentLocator: "ipfs://agreement",
	})
	return l, sub, err == nil
}

// TestCliffMonotonicity: maturation attempts at increasing offsets fail with
// CliffNotEnded strictly before the cliff and the first attempt at or after
// it succeeds.
func TestCliffMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("mature fails before the cliff and succeeds at the first call after it", prop.ForAll(
		func(offsets []uint32) bool {
			l, sub, ok := subscribed(models.LockStandard)
			if !ok {
				return false
			}
			matured := false
			var elapsed time.Duration
			for _, o := range offsets {
				// steps of up to ~35 days, in seconds
				elapsed += time.Duration(o%(35*24*3600)) * time.Second
				now := t0.Add(elapsed)
				_, err := l.svc.Mature(testutil.Ctx(alice, now), alice, sub.ID)
				switch {
				case now.Before(sub.CliffEndTime):
					if !dErrors.HasCode(err, dErrors.CodeCliffNotEnded) {
						return false
					}
				case !matured:
					if err != nil {
						return false
					}
					matured = true
				default:
					if !dErrors.HasCode(err, dErrors.CodeAlreadyMatured) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt32()),
	))

	properties.TestingRun(t)
}

// TestNoDoubleIssuance: however many maturations are attempted after the
// cliff, the holder receives the allocation exactly once.
func TestNoDoubleIssuance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("units are minted once", prop.ForAll(
		func(attempts uint8, extended bool) bool {
			mode := models.LockStandard
			if extended {
				mode = models.LockExtendedHold
			}
			l, sub, ok := subscribed(mode)
			if !ok {
				return false
			}
			successes := 0
			for i := 0; i <= int(attempts%16); i++ {
				now := sub.CliffEndTime.Add(time.Duration(i) * time.Hour)
				if _, err := l.svc.Mature(testutil.Ctx(alice, now), alice, sub.ID); err == nil {
					successes++
				} else if !dErrors.HasCode(err, dErrors.CodeAlreadyMatured) {
					return false
				}
			}
			balance, err := l.token.BalanceOf(context.Background(), alice)
			return err == nil && successes == 1 && balance.Equal(decimal.NewFromInt(1))
		},
		gen.UInt8(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestCoverageGating: while the oracle reports unhealthy coverage no
// maturation succeeds, whatever the clock says.
func TestCoverageGating(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("mature never succeeds while coverage is unhealthy", prop.ForAll(
		func(offsetDays uint16) bool {
			l, sub, ok := subscribed(models.LockStandard)
			if !ok {
				return false
			}
			l.oracle.healthy = false
			now := t0.Add(time.Duration(offsetDays) * day)
			_, err := l.svc.Mature(testutil.Ctx(alice, now), alice, sub.ID)
			if err == nil {
				return false
			}
			balance, err := l.token.BalanceOf(context.Background(), alice)
			return err == nil && balance.IsZero()
		},
		gen.UInt16Range(0, 4000),
	))

	properties.TestingRun(t)
}
