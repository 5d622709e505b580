//go:build property

package service

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"aurum/internal/access"
	"aurum/internal/deposit/models"
	"aurum/internal/deposit/proof"
	"aurum/internal/deposit/store"
	id "aurum/pkg/domain"
	"aurum/pkg/testutil"
)

// TestReplayCreditsOnce: however often a set of proofs is submitted, and in
// whatever order, the holder is credited exactly once per distinct proof.
func TestReplayCreditsOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("credit equals the sum over distinct proofs", prop.ForAll(
		func(nonces []uint8) bool {
			svc, err := New(store.NewInMemoryStore(), access.NewAuthorizer(nil))
			if err != nil {
				return false
			}
			ctx := context.Background()
			if err := svc.Seed(ctx,
				[]models.Operator{{Address: operator, PublicKey: opKey.Public().(ed25519.PublicKey)}},
				[]models.TokenConfig{{Chain: "ethereum", Token: "USDC", Stable: true}},
			); err != nil {
				return false
			}

			expected := decimal.Zero
			seen := map[id.Hash]bool{}
			for _, raw := range nonces {
				// nonce picks the proof, so repeated nonces replay it
				nonce := uint64(raw % 8)
				usd := decimal.NewFromInt(int64(nonce)*1000 + 1000)
				p := &models.Proof{
					Holder:       holder,
					SourceChain:  "ethereum",
					SourceTxHash: "0xabc",
					SourceToken:  "USDC",
					SourceAmount: usd,
					USDAmount:    usd,
					Nonce:        nonce,
					Timestamp:    t0.Add(-time.Minute),
				}
				hash, err := proof.Hash(p)
				if err != nil {
					return false
				}
				sig, err := proof.Sign(hash, operator, opKey)
				if err != nil {
					return false
				}
				p.OperatorSignature = sig

				_, err = svc.SubmitProof(testutil.Ctx(operator, t0), p)
				if seen[hash] {
					if err == nil {
						return false
					}
					continue
				}
				if err != nil {
					return false
				}
				seen[hash] = true
				expected = expected.Add(usd)
			}
			c, err := svc.Credit(ctx, holder)
			return err == nil && c.AmountUSD.Equal(expected)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
