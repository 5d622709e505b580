package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	compliancemodels "aurum/internal/compliance/models"
	"aurum/internal/subscription/metrics"
	"aurum/internal/subscription/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/testutil"
)

type SubscriptionServiceSuite struct {
	suite.Suite
	l *testLedger
}

func TestSubscriptionServiceSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	l, err := newTestLedger()
	s.Require().NoError(err)
	s.l = l
}

func (s *SubscriptionServiceSuite) fund(holder id.Address, usd decimal.Decimal, at time.Time) {
	s.Require().NoError(s.l.fund(holder, usd, at))
}

func (s *SubscriptionServiceSuite) subscribe(holder id.Address, mode models.LockMode, hash id.Hash, at time.Time) (*models.Subscription, error) {
	return s.l.svc.Subscribe(testutil.Ctx(holder, at), models.Intent{
		Holder:          holder,
		USDAmount:       usd20k,
		LockMode:        mode,
		DocumentHash:    hash,
		DocumentLocator: "ipfs://bafy-" + hash.String()[2:10],
	})
}

func (s *SubscriptionServiceSuite) mustSubscribe(holder id.Address, mode models.LockMode, hash id.Hash, at time.Time) *models.Subscription {
	s.fund(holder, usd20k, at)
	sub, err := s.subscribe(holder, mode, hash, at)
	s.Require().NoError(err)
	return sub
}

func (s *SubscriptionServiceSuite) balance(holder id.Address) decimal.Decimal {
	b, err := s.l.token.BalanceOf(context.Background(), holder)
	s.Require().NoError(err)
	return b
}

func (s *SubscriptionServiceSuite) TestStandardSubscriptionMaturesAfterCliff() {
	sub := s.mustSubscribe(alice, models.LockStandard, doc(1), t0)

	s.True(sub.UnitsAllocated.Equal(decimal.NewFromInt(1)))
	s.Equal(t0.Add(150*day), sub.CliffEndTime)
	s.True(sub.ExtendedHoldEndTime.IsZero())
	s.Equal(models.StateCreated, sub.State(t0))
	s.True(s.l.credit(alice).IsZero())

	ok, err := s.l.agreements.Verify(context.Background(), doc(1), "ipfs://bafy-"+doc(1).String()[2:10])
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.l.svc.Mature(testutil.Ctx(alice, t0.Add(149*day)), alice, sub.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCliffNotEnded))
	s.True(s.balance(alice).IsZero())

	matured, err := s.l.svc.Mature(testutil.Ctx(alice, t0.Add(150*day)), alice, sub.ID)
	s.Require().NoError(err)
	s.True(matured.Matured)
	s.True(s.balance(alice).Equal(decimal.NewFromInt(1)))

	account, err := s.l.token.Account(context.Background(), alice)
	s.Require().NoError(err)
	s.True(account.TransferLockUntil.IsZero())

	_, err = s.l.svc.Mature(testutil.Ctx(alice, t0.Add(151*day)), alice, sub.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyMatured))
	s.True(s.balance(alice).Equal(decimal.NewFromInt(1)))

	s.Equal([]compliancemodels.Action{compliancemodels.ActionSubscribe, compliancemodels.ActionMature}, s.l.compliance.recorded)

	events, err := s.l.audit.ListByEntity(context.Background(), sub.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventSubscriptionCreated), events[0].Action)
	s.Equal(string(audit.EventSubscriptionMatured), events[1].Action)
}

func (s *SubscriptionServiceSuite) TestExtendedHoldLocksTokensAfterMaturity() {
	sub := s.mustSubscribe(alice, models.LockExtendedHold, doc(1), t0)
	s.Equal(t0.Add(1825*day), sub.ExtendedHoldEndTime)

	_, err := s.l.svc.Mature(testutil.Ctx(alice, t0.Add(150*day)), alice, sub.ID)
	s.Require().NoError(err)

	account, err := s.l.token.Account(context.Background(), alice)
	s.Require().NoError(err)
	s.Equal(t0.Add(1825*day), account.TransferLockUntil)

	_, err = s.l.token.Transfer(testutil.Ctx(alice, t0.Add(1000*day)), bob, decimal.NewFromInt(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedByCliff))

	_, err = s.l.token.Transfer(testutil.Ctx(alice, t0.Add(1825*day)), bob, decimal.NewFromInt(1))
	s.Require().NoError(err)
	s.True(s.balance(bob).Equal(decimal.NewFromInt(1)))
}

func (s *SubscriptionServiceSuite) TestSubscribePreconditions() {
	s.Run("not compliant", func() {
		s.fund(bob, usd20k, t0)
		s.l.compliance.denied[bob] = true
		defer delete(s.l.compliance.denied, bob)

		_, err := s.subscribe(bob, models.LockStandard, doc(10), t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))
		s.True(s.l.credit(bob).Equal(usd20k))
	})

	s.Run("below minimum entry", func() {
		_, err := s.l.svc.Subscribe(testutil.Ctx(bob, t0), models.Intent{
			Holder:          bob,
			USDAmount:       decimal.New(19999, 18),
			DocumentHash:    doc(11),
			DocumentLocator: "ipfs://low",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBelowMinimum))
	})

	s.Run("insufficient credit", func() {
		_, err := s.subscribe(alice, models.LockStandard, doc(12), t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientCredit))
	})

	s.Run("document replay", func() {
		s.mustSubscribe(alice, models.LockStandard, doc(13), t0)
		s.fund(alice, usd20k, t0)
		_, err := s.subscribe(alice, models.LockStandard, doc(13), t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDocumentReplay))
		s.True(s.l.credit(alice).Equal(usd20k))
	})

	s.Run("hash already in the agreement ledger", func() {
		_, err := s.l.agreements.Record(testutil.Ctx(operator, t0), bob, doc(14), "ipfs://nda", "nda")
		s.Require().NoError(err)
		_, err = s.subscribe(bob, models.LockStandard, doc(14), t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDocumentReplay))
	})

	s.Run("admission refused", func() {
		s.l.compliance.admitErr = dErrors.New(dErrors.CodeCapacityExceeded, "jurisdiction full")
		defer func() { s.l.compliance.admitErr = nil }()
		_, err := s.subscribe(bob, models.LockStandard, doc(15), t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
		s.True(s.l.credit(bob).Equal(usd20k))
	})

	s.Run("someone else's credit", func() {
		_, err := s.l.svc.Subscribe(testutil.Ctx(alice, t0), models.Intent{
			Holder:          bob,
			USDAmount:       usd20k,
			DocumentHash:    doc(16),
			DocumentLocator: "ipfs://x",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("invalid intent", func() {
		_, err := s.l.svc.Subscribe(testutil.Ctx(bob, t0), models.Intent{Holder: bob, USDAmount: usd20k, DocumentHash: doc(17)})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *SubscriptionServiceSuite) TestOperatorSubscribesOnBehalfOfHolder() {
	s.fund(bob, usd20k, t0)
	sub, err := s.l.svc.Subscribe(testutil.Ctx(operator, t0), models.Intent{
		Holder:          bob,
		USDAmount:       usd20k,
		DocumentHash:    doc(20),
		DocumentLocator: "ipfs://signed-by-bob",
	})
	s.Require().NoError(err)
	s.Equal(bob, sub.Holder)
	s.Equal(models.LockStandard, sub.LockMode)

	record, err := s.l.agreements.Get(context.Background(), doc(20))
	s.Require().NoError(err)
	s.Equal(bob, record.Signer)
	s.Equal(operator, record.Notary)
	s.Equal(DefaultDocType, record.DocType)
	s.Equal([]id.Address{bob}, s.l.compliance.admitted)
}

func (s *SubscriptionServiceSuite) TestProgramCap() {
	l, err := newTestLedger(WithParams(Params{
		EntryPriceUSD:        usd20k,
		MinEntryUSD:          usd20k,
		ProgramCapUnits:      decimal.NewFromInt(1),
		CliffDuration:        150 * day,
		ExtendedHoldDuration: 1825 * day,
	}))
	s.Require().NoError(err)
	s.l = l

	s.mustSubscribe(alice, models.LockStandard, doc(1), t0)
	s.fund(bob, usd20k, t0)
	_, err = s.subscribe(bob, models.LockStandard, doc(2), t0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	s.True(s.l.credit(bob).Equal(usd20k))

	st, err := s.l.svc.Stats(context.Background())
	s.Require().NoError(err)
	s.Equal(1, st.Subscriptions)
	s.True(st.AllocatedUnits.Equal(st.ProgramCap))
}

func (s *SubscriptionServiceSuite) TestFloorDivisionOfUnits() {
	s.fund(alice, decimal.New(50000, 18), t0)
	sub, err := s.l.svc.Subscribe(testutil.Ctx(alice, t0), models.Intent{
		Holder:          alice,
		USDAmount:       decimal.New(50000, 18),
		DocumentHash:    doc(1),
		DocumentLocator: "ipfs://two-and-a-half",
	})
	s.Require().NoError(err)
	s.True(sub.UnitsAllocated.Equal(decimal.NewFromInt(2)))
	s.True(sub.DepositUSD.Equal(decimal.New(50000, 18)))
}

func (s *SubscriptionServiceSuite) TestPauseBlocksSubscribeAndMature() {
	sub := s.mustSubscribe(alice, models.LockStandard, doc(1), t0)
	s.Require().NoError(s.l.guard.Pause(testutil.Ctx(pauser, t0), "vault audit"))

	s.fund(bob, usd20k, t0)
	_, err := s.subscribe(bob, models.LockStandard, doc(2), t0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePaused))

	_, err = s.l.svc.Mature(testutil.Ctx(alice, t0.Add(150*day)), alice, sub.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePaused))

	s.Require().NoError(s.l.guard.Unpause(testutil.Ctx(pauser, t0)))
	_, err = s.l.svc.Mature(testutil.Ctx(alice, t0.Add(150*day)), alice, sub.ID)
	s.Require().NoError(err)
}

func (s *SubscriptionServiceSuite) TestMatureGates() {
	sub := s.mustSubscribe(alice, models.LockStandard, doc(1), t0)
	after := t0.Add(150 * day)

	s.Run("coverage breach blocks issuance", func() {
		s.l.oracle.healthy = false
		defer func() { s.l.oracle.healthy = true }()
		_, err := s.l.svc.Mature(testutil.Ctx(alice, after), alice, sub.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeCoverageBreached))
		s.True(s.balance(alice).IsZero())
	})

	s.Run("holder restricted during the cliff", func() {
		s.l.compliance.denied[alice] = true
		defer delete(s.l.compliance.denied, alice)
		_, err := s.l.svc.Mature(testutil.Ctx(alice, after), alice, sub.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))
	})

	s.Run("wrong holder", func() {
		_, err := s.l.svc.Mature(testutil.Ctx(operator, after), bob, sub.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown subscription", func() {
		_, err := s.l.svc.Mature(testutil.Ctx(alice, after), alice, id.NewSubscriptionID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("stranger cannot mature", func() {
		_, err := s.l.svc.Mature(testutil.Ctx(bob, after), alice, sub.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("operator matures for the holder", func() {
		_, err := s.l.svc.Mature(testutil.Ctx(operator, after), alice, sub.ID)
		s.Require().NoError(err)
		s.True(s.balance(alice).Equal(decimal.NewFromInt(1)))
	})
}

func (s *SubscriptionServiceSuite) TestMatureBatchContinuesPastFailures() {
	early := s.mustSubscribe(alice, models.LockStandard, doc(1), t0)
	late := s.mustSubscribe(bob, models.LockStandard, doc(2), t0.Add(10*day))
	unknown := id.NewSubscriptionID()

	outcomes := s.l.svc.MatureBatch(testutil.Ctx(keeper, t0.Add(150*day)), []models.MaturationRef{
		{Holder: bob, ID: late.ID},
		{Holder: alice, ID: unknown},
		{Holder: alice, ID: early.ID},
	})
	s.Require().Len(outcomes, 3)
	s.False(outcomes[0].Matured)
	s.Equal(string(dErrors.CodeCliffNotEnded), outcomes[0].Error)
	s.Equal(string(dErrors.CodeNotFound), outcomes[1].Error)
	s.True(outcomes[2].Matured)
	s.True(outcomes[2].UnitsMinted.Equal(decimal.NewFromInt(1)))
	s.True(s.balance(alice).Equal(decimal.NewFromInt(1)))
	s.True(s.balance(bob).IsZero())
}

func (s *SubscriptionServiceSuite) TestMatureDue() {
	first := s.mustSubscribe(alice, models.LockStandard, doc(1), t0)
	s.mustSubscribe(bob, models.LockStandard, doc(2), t0.Add(10*day))
	ctx := testutil.Ctx(keeper, t0.Add(155*day))

	due, err := s.l.svc.DueForMaturation(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(first.ID, due[0].ID)

	outcomes, err := s.l.svc.MatureDue(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(outcomes, 1)
	s.True(outcomes[0].Matured)

	due, err = s.l.svc.DueForMaturation(ctx, 0)
	s.Require().NoError(err)
	s.Empty(due)

	subs, err := s.l.svc.ListByHolder(context.Background(), alice)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal(models.StateMatured, subs[0].State(t0.Add(155*day)))

	st, err := s.l.svc.Stats(context.Background())
	s.Require().NoError(err)
	s.Equal(2, st.Subscriptions)
	s.Equal(1, st.Matured)
	s.True(st.MaturedUnits.Equal(decimal.NewFromInt(1)))
}

func TestNew_ValidatesDependenciesAndParams(t *testing.T) {
	_, err := New(nil, Dependencies{}, nil)
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = newTestLedger(WithParams(Params{ProgramCapUnits: decimal.NewFromInt(1)}))
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error for zero entry price, got %v", err)
	}
}

func (s *SubscriptionServiceSuite) eventActions() []string {
	events, err := s.l.audit.ListAll(context.Background())
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *SubscriptionServiceSuite) TestSubscribeIsAllOrNothing() {
	s.fund(alice, usd20k, t0)
	before := s.eventActions()

	s.Run("agreement checks run before any write", func() {
		_, err := s.l.svc.Subscribe(testutil.Ctx(alice, t0), models.Intent{
			Holder:          alice,
			USDAmount:       usd20k,
			DocumentHash:    doc(40),
			DocumentLocator: "ipfs://" + strings.Repeat("b", 600),
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("failure after the debit reverts everything", func() {
		s.l.faults.createErr = errors.New("disk full")
		defer func() { s.l.faults.createErr = nil }()
		_, err := s.subscribe(alice, models.LockStandard, doc(41), t0)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.True(s.l.credit(alice).Equal(usd20k))
	s.Empty(s.l.compliance.admitted)
	s.Empty(s.l.compliance.recorded)
	for _, hash := range []id.Hash{doc(40), doc(41)} {
		exists, err := s.l.agreements.Exists(context.Background(), hash)
		s.Require().NoError(err)
		s.False(exists)
	}
	subs, err := s.l.svc.ListByHolder(context.Background(), alice)
	s.Require().NoError(err)
	s.Empty(subs)
	s.Equal(before, s.eventActions(), "reverted writes leave no audit trail")

	sub, err := s.subscribe(alice, models.LockStandard, doc(41), t0)
	s.Require().NoError(err)
	s.True(sub.UnitsAllocated.Equal(decimal.NewFromInt(1)))
	s.True(s.l.credit(alice).IsZero())
	s.Equal([]id.Address{alice}, s.l.compliance.admitted)
}

func (s *SubscriptionServiceSuite) TestMatureIsAllOrNothing() {
	sub := s.mustSubscribe(alice, models.LockExtendedHold, doc(42), t0)
	ctx := testutil.Ctx(alice, t0.Add(150*day))

	assertUntouched := func() {
		s.True(s.balance(alice).IsZero())
		supply, err := s.l.token.TotalSupply(context.Background())
		s.Require().NoError(err)
		s.True(supply.IsZero())
		account, err := s.l.token.Account(context.Background(), alice)
		s.Require().NoError(err)
		s.True(account.TransferLockUntil.IsZero())
		got, err := s.l.svc.Get(context.Background(), sub.ID)
		s.Require().NoError(err)
		s.False(got.Matured)
	}

	s.Run("lock write fails after the mint", func() {
		s.l.tokenFault.setLockErr = dErrors.New(dErrors.CodeInternal, "token store unavailable")
		defer func() { s.l.tokenFault.setLockErr = nil }()
		_, err := s.l.svc.Mature(ctx, alice, sub.ID)
		s.Require().Error(err)
		assertUntouched()
	})

	s.Run("matured flag fails after mint and lock", func() {
		s.l.faults.maturedErr = errors.New("disk full")
		defer func() { s.l.faults.maturedErr = nil }()
		_, err := s.l.svc.Mature(ctx, alice, sub.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		assertUntouched()
	})

	matured, err := s.l.svc.Mature(ctx, alice, sub.ID)
	s.Require().NoError(err)
	s.True(matured.Matured)
	s.True(s.balance(alice).Equal(decimal.NewFromInt(1)))
	account, err := s.l.token.Account(context.Background(), alice)
	s.Require().NoError(err)
	s.Equal(t0.Add(1825*day), account.TransferLockUntil)
}

func (s *SubscriptionServiceSuite) TestUnrecordedCooldownIsReported() {
	m := metrics.New(prometheus.NewRegistry())
	l, err := newTestLedger(WithMetrics(m))
	s.Require().NoError(err)
	s.l = l
	s.l.compliance.recordErr = errors.New("cooldown store down")

	sub := s.mustSubscribe(alice, models.LockStandard, doc(50), t0)
	s.Equal(1.0, promtest.ToFloat64(m.CooldownMisses.WithLabelValues(string(compliancemodels.ActionSubscribe))))

	_, err = s.l.svc.Mature(testutil.Ctx(alice, t0.Add(150*day)), alice, sub.ID)
	s.Require().NoError(err, "the action itself stands")
	s.Equal(1.0, promtest.ToFloat64(m.CooldownMisses.WithLabelValues(string(compliancemodels.ActionMature))))

	events, err := s.l.audit.ListAll(context.Background())
	s.Require().NoError(err)
	var missed []string
	for _, e := range events {
		if e.Action != string(audit.EventActionNotRecorded) {
			continue
		}
		s.Equal("holder", e.Entity)
		s.Equal(alice.String(), e.EntityID)
		s.Equal("cooldown store down", e.Reason)
		missed = append(missed, e.After)
	}
	s.Equal([]string{string(compliancemodels.ActionSubscribe), string(compliancemodels.ActionMature)}, missed)
}
