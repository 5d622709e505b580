package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/access"
	"aurum/internal/breaker"
	compliancemodels "aurum/internal/compliance/models"
	"aurum/internal/platform/flags"
	submodels "aurum/internal/subscription/models"
	tokenmodels "aurum/internal/token/models"
	tokenservice "aurum/internal/token/service"
	tokenstore "aurum/internal/token/store"
	"aurum/internal/yield/store"
	id "aurum/pkg/domain"
	"aurum/pkg/platform/audit/publisher"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/platform/tx"
	"aurum/pkg/requestcontext"
	"aurum/pkg/testutil"
)

var (
	ledger   = testutil.Address(0xa0)
	pauser   = testutil.Address(0x05)
	keeper   = testutil.Address(0x07)
	treasury = testutil.Address(0x0e)
	alice    = testutil.Address(0x10)
	bob      = testutil.Address(0x11)
	carol    = testutil.Address(0x12)
	t0       = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	day      = 24 * time.Hour
)

type fakeCompliance struct {
	denied    map[id.Address]bool
	recordErr error
	recorded  []id.Address
}

func (c *fakeCompliance) Check(_ context.Context, holder id.Address, _ compliancemodels.Action) (bool, error) {
	return !c.denied[holder], nil
}

func (c *fakeCompliance) RecordAction(_ context.Context, holder id.Address, _ compliancemodels.Action) error {
	if c.recordErr != nil {
		return c.recordErr
	}
	c.recorded = append(c.recorded, holder)
	return nil
}

// transferRules is the compliance view of the token ledger, kept apart from
// the distributor's own CLAIM checks.
type transferRules struct {
	denied map[id.Address]bool
}

func (r *transferRules) Check(_ context.Context, holder id.Address, action compliancemodels.Action) (bool, error) {
	return action == compliancemodels.ActionTransfer && !r.denied[holder], nil
}

// payoutToken fails the payout transfer on demand.
type payoutToken struct {
	*tokenservice.Service
	transferErr error
}

func (t *payoutToken) Transfer(ctx context.Context, to id.Address, amount decimal.Decimal) (*tokenmodels.Transfer, error) {
	if t.transferErr != nil {
		return nil, t.transferErr
	}
	return t.Service.Transfer(ctx, to, amount)
}

type stubOracle struct {
	healthy bool
}

func (o *stubOracle) IsHealthy(context.Context) (bool, uint64, error) {
	if o.healthy {
		return true, 10100, nil
	}
	return false, 9900, nil
}

type stubAllocations map[id.Address][]submodels.Subscription

func (a stubAllocations) ListByHolder(_ context.Context, holder id.Address) ([]submodels.Subscription, error) {
	return a[holder], nil
}

// testDistributor wires the distributor to a real token ledger and breaker
// guard sharing one transaction runner.
type testDistributor struct {
	svc        *Service
	store      *store.InMemoryStore
	token      *tokenservice.Service
	payout     *payoutToken
	transfers  *transferRules
	guard      *breaker.Guard
	oracle     *stubOracle
	compliance *fakeCompliance
	audit      *auditmemory.InMemoryStore
}

func newTestDistributor(allocations Allocations, opts ...Option) (*testDistributor, error) {
	runner := tx.NewLockRunner(0)
	auth := access.NewAuthorizer(map[access.Capability][]id.Address{
		access.Treasury: {treasury},
		access.Keeper:   {keeper},
		access.Pauser:   {pauser},
	})
	d := &testDistributor{
		store:      store.NewInMemoryStore(),
		oracle:     &stubOracle{healthy: true},
		compliance: &fakeCompliance{denied: map[id.Address]bool{}},
		transfers:  &transferRules{denied: map[id.Address]bool{}},
		audit:      auditmemory.NewInMemoryStore(),
	}
	pub := publisher.NewPublisher(d.audit)
	d.token = tokenservice.New(tokenstore.NewInMemoryStore(), ledger,
		tokenservice.WithTxRunner(runner), tokenservice.WithAuditPublisher(pub),
		tokenservice.WithTransferCompliance(d.transfers, treasury, ledger))
	d.payout = &payoutToken{Service: d.token}
	d.guard = breaker.New(flags.NewInMemoryStore(), d.oracle, auth, breaker.WithTxRunner(runner))

	base := []Option{WithTxRunner(runner), WithAuditPublisher(pub)}
	var err error
	d.svc, err = New(d.store, Dependencies{
		Token:       d.payout,
		Compliance:  d.compliance,
		Guard:       d.guard,
		Allocations: allocations,
		Treasury:    treasury,
	}, auth, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// mint issues units to holder under the ledger principal.
func (d *testDistributor) mint(holder id.Address, units int64) error {
	_, err := d.token.Mint(requestcontext.WithActor(context.Background(), ledger), holder, decimal.NewFromInt(units))
	return err
}

func (d *testDistributor) lock(holder id.Address, until time.Time) error {
	_, err := d.token.SetLock(testutil.Ctx(ledger, t0), holder, until)
	return err
}

func (d *testDistributor) balance(holder id.Address) decimal.Decimal {
	b, err := d.token.BalanceOf(context.Background(), holder)
	if err != nil {
		return decimal.NewFromInt(-1)
	}
	return b
}

func (d *testDistributor) startEpoch(rate int64, at time.Time) error {
	_, err := d.svc.StartEpoch(testutil.Ctx(treasury, at), rate)
	return err
}
