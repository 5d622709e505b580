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

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

// TestClaimExclusivity: under any interleaving of single and multi-epoch
// claims each (epoch, holder) pays at most once, the claimable amount drops
// to zero afterwards and the treasury loses exactly what holders gained.
func TestClaimExclusivity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	holders := []id.Address{alice, bob, carol}

	properties.Property("each (epoch, holder) is paid at most once", prop.ForAll(
		func(ops []uint8) bool {
			d, err := newTestDistributor(nil)
			if err != nil {
				return false
			}
			for i, h := range holders {
				if d.mint(h, int64(50*(i+1))) != nil {
					return false
				}
			}
			if d.mint(treasury, 100000) != nil {
				return false
			}
			for i := 0; i < 4; i++ {
				if d.startEpoch(int64(100+100*i), t0.Add(time.Duration(i)*30*day)) != nil {
					return false
				}
			}
			at := t0.Add(100 * day)

			paid := make(map[id.Address]map[id.EpochNumber]int)
			for _, h := range holders {
				paid[h] = make(map[id.EpochNumber]int)
			}
			for _, op := range ops {
				h := holders[int(op)%len(holders)]
				n := id.EpochNumber(op/3%5 + 1)
				ctx := testutil.Ctx(h, at)
				if op&0x80 != 0 {
					out, err := d.svc.ClaimMultiple(ctx, h, []id.EpochNumber{n, n%4 + 1})
					if err != nil {
						return false
					}
					for _, c := range out.Claims {
						paid[h][c.Epoch]++
					}
					continue
				}
				if _, err := d.svc.Claim(ctx, h, n); err == nil {
					paid[h][n]++
				} else if !dErrors.HasCode(err, dErrors.CodeAlreadyClaimed) &&
					!dErrors.HasCode(err, dErrors.CodeEpochNotFinalized) &&
					!dErrors.HasCode(err, dErrors.CodeNotFound) {
					return false
				}
			}

			gained := decimal.Zero
			for i, h := range holders {
				for n, count := range paid[h] {
					if count > 1 {
						return false
					}
					left, err := d.svc.GetClaimableAmount(context.Background(), h, n)
					if err != nil || !left.IsZero() {
						return false
					}
				}
				gained = gained.Add(d.balance(h).Sub(decimal.NewFromInt(int64(50 * (i + 1)))))
			}
			return d.balance(treasury).Add(gained).Equal(decimal.NewFromInt(100000))
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
