package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	compliancemodels "aurum/internal/compliance/models"
	"aurum/internal/token/store"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/audit/publisher"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/testutil"
)

var (
	ledger   = testutil.Address(0xa0)
	treasury = testutil.Address(0x06)
	alice    = testutil.Address(0x10)
	bob      = testutil.Address(0x11)
	carol    = testutil.Address(0x12)
	t0       = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
)

type stubCompliance struct {
	denied map[id.Address]bool
	calls  []id.Address
}

func (c *stubCompliance) Check(_ context.Context, holder id.Address, action compliancemodels.Action) (bool, error) {
	c.calls = append(c.calls, holder)
	return action == compliancemodels.ActionTransfer && !c.denied[holder], nil
}

type TokenServiceSuite struct {
	suite.Suite
	svc   *Service
	audit *auditmemory.InMemoryStore
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	s.audit = auditmemory.NewInMemoryStore()
	s.svc = New(store.NewInMemoryStore(), ledger, WithAuditPublisher(publisher.NewPublisher(s.audit)))
}

func units(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func (s *TokenServiceSuite) mint(to id.Address, n int64) {
	_, err := s.svc.Mint(testutil.Ctx(ledger, t0), to, units(n))
	s.Require().NoError(err)
}

func (s *TokenServiceSuite) balance(holder id.Address) decimal.Decimal {
	b, err := s.svc.BalanceOf(context.Background(), holder)
	s.Require().NoError(err)
	return b
}

func (s *TokenServiceSuite) TestMintIsRestrictedToTheMintAuthority() {
	_, err := s.svc.Mint(testutil.Ctx(alice, t0), alice, units(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Mint(context.Background(), alice, units(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	s.mint(alice, 2)
	s.mint(alice, 1)
	s.True(s.balance(alice).Equal(units(3)))

	supply, err := s.svc.TotalSupply(context.Background())
	s.Require().NoError(err)
	s.True(supply.Equal(units(3)))

	events, _ := s.audit.ListByEntity(context.Background(), alice.String())
	s.Len(events, 2)
	s.Equal(string(audit.EventTokenMinted), events[0].Action)
}

func (s *TokenServiceSuite) TestTransferRespectsLockUntilItEnds() {
	s.mint(alice, 1)
	hold := t0.Add(1825 * 24 * time.Hour)
	_, err := s.svc.SetLock(testutil.Ctx(ledger, t0), alice, hold)
	s.Require().NoError(err)

	_, err = s.svc.Transfer(testutil.Ctx(alice, t0.Add(24*time.Hour)), bob, units(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedByCliff))

	_, err = s.svc.Transfer(testutil.Ctx(alice, hold.Add(-time.Second)), bob, units(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedByCliff))

	_, err = s.svc.Transfer(testutil.Ctx(alice, hold), bob, units(1))
	s.Require().NoError(err)
	s.True(s.balance(bob).Equal(units(1)))
	s.True(s.balance(alice).IsZero())
}

func (s *TokenServiceSuite) TestLockedRecipientCanStillReceive() {
	s.mint(alice, 1)
	s.mint(bob, 1)
	_, err := s.svc.SetLock(testutil.Ctx(ledger, t0), bob, t0.Add(time.Hour))
	s.Require().NoError(err)

	_, err = s.svc.Transfer(testutil.Ctx(alice, t0), bob, units(1))
	s.Require().NoError(err)
	s.True(s.balance(bob).Equal(units(2)))
}

func (s *TokenServiceSuite) TestSetLockNeverShortens() {
	long := t0.Add(1825 * 24 * time.Hour)
	ctx := testutil.Ctx(ledger, t0)

	a, err := s.svc.SetLock(ctx, alice, long)
	s.Require().NoError(err)
	s.Equal(long, a.TransferLockUntil)

	a, err = s.svc.SetLock(ctx, alice, t0.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(long, a.TransferLockUntil)

	_, err = s.svc.SetLock(testutil.Ctx(alice, t0), alice, t0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.ClearLock(testutil.Ctx(alice, t0), alice)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	a, err = s.svc.ClearLock(ctx, alice)
	s.Require().NoError(err)
	s.True(a.TransferLockUntil.IsZero())
}

func (s *TokenServiceSuite) TestInsufficientBalance() {
	s.mint(alice, 1)
	_, err := s.svc.Transfer(testutil.Ctx(alice, t0), bob, units(2))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	s.True(s.balance(alice).Equal(units(1)))
	s.True(s.balance(bob).IsZero())
}

func (s *TokenServiceSuite) TestTransferFromSpendsAllowance() {
	s.mint(alice, 5)
	s.Require().NoError(s.svc.Approve(testutil.Ctx(alice, t0), carol, units(3)))

	_, err := s.svc.TransferFrom(testutil.Ctx(carol, t0), alice, bob, units(4))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))

	_, err = s.svc.TransferFrom(testutil.Ctx(carol, t0), alice, bob, units(2))
	s.Require().NoError(err)

	left, err := s.svc.Allowance(context.Background(), alice, carol)
	s.Require().NoError(err)
	s.True(left.Equal(units(1)))
	s.True(s.balance(bob).Equal(units(2)))

	_, err = s.svc.SetLock(testutil.Ctx(ledger, t0), alice, t0.Add(time.Hour))
	s.Require().NoError(err)
	_, err = s.svc.TransferFrom(testutil.Ctx(carol, t0), alice, bob, units(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLockedByCliff))

	left, err = s.svc.Allowance(context.Background(), alice, carol)
	s.Require().NoError(err)
	s.True(left.Equal(units(1)))
}

func (s *TokenServiceSuite) TestTransferCompliance() {
	checker := &stubCompliance{denied: map[id.Address]bool{carol: true}}
	s.svc = New(store.NewInMemoryStore(), ledger, WithTransferCompliance(checker, treasury))
	s.mint(alice, 2)
	s.mint(treasury, 2)

	_, err := s.svc.Transfer(testutil.Ctx(alice, t0), carol, units(1))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotCompliant))

	_, err = s.svc.Transfer(testutil.Ctx(alice, t0), bob, units(1))
	s.Require().NoError(err)

	checker.calls = nil
	_, err = s.svc.Transfer(testutil.Ctx(treasury, t0), bob, units(1))
	s.Require().NoError(err)
	s.Equal([]id.Address{bob}, checker.calls)
}

func (s *TokenServiceSuite) TestCheckTransferMovesNothing() {
	checker := &stubCompliance{denied: map[id.Address]bool{carol: true}}
	s.svc = New(store.NewInMemoryStore(), ledger, WithTransferCompliance(checker, treasury))
	s.mint(alice, 2)
	_, err := s.svc.SetLock(testutil.Ctx(ledger, t0), bob, t0.Add(time.Hour))
	s.Require().NoError(err)
	s.mint(bob, 1)

	ctx := testutil.Ctx(alice, t0)
	s.Require().NoError(s.svc.CheckTransfer(ctx, alice, bob, units(2)))
	s.True(dErrors.HasCode(s.svc.CheckTransfer(ctx, alice, carol, units(1)), dErrors.CodeNotCompliant))
	s.True(dErrors.HasCode(s.svc.CheckTransfer(ctx, alice, bob, units(3)), dErrors.CodeInsufficientBalance))
	s.True(dErrors.HasCode(s.svc.CheckTransfer(ctx, bob, alice, units(1)), dErrors.CodeLockedByCliff))

	s.True(s.balance(alice).Equal(units(2)))
	s.True(s.balance(bob).Equal(units(1)))
}

func (s *TokenServiceSuite) TestHolders() {
	s.mint(bob, 1)
	s.mint(alice, 2)
	_, err := s.svc.Transfer(testutil.Ctx(bob, t0), alice, units(1))
	s.Require().NoError(err)

	holders, err := s.svc.Holders(context.Background())
	s.Require().NoError(err)
	s.Require().Len(holders, 1)
	s.Equal(alice, holders[0].Holder)
	s.True(holders[0].Balance.Equal(units(3)))
}
