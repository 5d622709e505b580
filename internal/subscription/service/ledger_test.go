package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/shopspring/decimal"

	"aurum/internal/access"
	agreementservice "aurum/internal/agreement/service"
	agreementstore "aurum/internal/agreement/store"
	"aurum/internal/breaker"
	compliancemodels "aurum/internal/compliance/models"
	depositmodels "aurum/internal/deposit/models"
	"aurum/internal/deposit/proof"
	depositservice "aurum/internal/deposit/service"
	depositstore "aurum/internal/deposit/store"
	"aurum/internal/platform/flags"
	"aurum/internal/subscription/models"
	"aurum/internal/subscription/store"
	tokenmodels "aurum/internal/token/models"
	tokenservice "aurum/internal/token/service"
	tokenstore "aurum/internal/token/store"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit/publisher"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/platform/tx"
	"aurum/pkg/testutil"
)

var (
	ledger   = testutil.Address(0xa0)
	pauser   = testutil.Address(0x05)
	keeper   = testutil.Address(0x07)
	operator = testutil.Address(0xb1)
	alice    = testutil.Address(0x10)
	bob      = testutil.Address(0x11)
	t0       = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	opKey    = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x01}, ed25519.SeedSize))
	usd20k   = decimal.New(20000, 18)
	day      = 24 * time.Hour
)

type fakeCompliance struct {
	denied   map[id.Address]bool
	admitErr  error
	recordErr error
	recorded  []compliancemodels.Action
	admitted []id.Address
}

func (c *fakeCompliance) Check(_ context.Context, holder id.Address, _ compliancemodels.Action) (bool, error) {
	return !c.denied[holder], nil
}

func (c *fakeCompliance) RecordAction(_ context.Context, _ id.Address, action compliancemodels.Action) error {
	if c.recordErr != nil {
		return c.recordErr
	}
	c.recorded = append(c.recorded, action)
	return nil
}

func (c *fakeCompliance) CheckAdmission(context.Context, id.Address, decimal.Decimal, decimal.Decimal) error {
	return c.admitErr
}

func (c *fakeCompliance) AdmitParticipant(ctx context.Context, holder id.Address, _, _ decimal.Decimal) error {
	if c.admitErr != nil {
		return c.admitErr
	}
	n := len(c.admitted)
	c.admitted = append(c.admitted, holder)
	tx.OnRollback(ctx, func() { c.admitted = c.admitted[:n] })
	return nil
}

// faultyStore fails subscription writes on demand.
type faultyStore struct {
	*store.InMemoryStore
	createErr  error
	maturedErr error
}

func (f *faultyStore) Create(ctx context.Context, sub *models.Subscription) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.InMemoryStore.Create(ctx, sub)
}

func (f *faultyStore) MarkMatured(ctx context.Context, subID id.SubscriptionID, at time.Time) error {
	if f.maturedErr != nil {
		return f.maturedErr
	}
	return f.InMemoryStore.MarkMatured(ctx, subID, at)
}

// faultyToken fails lock writes on demand.
type faultyToken struct {
	*tokenservice.Service
	setLockErr error
}

func (t *faultyToken) SetLock(ctx context.Context, holder id.Address, until time.Time) (*tokenmodels.Account, error) {
	if t.setLockErr != nil {
		return nil, t.setLockErr
	}
	return t.Service.SetLock(ctx, holder, until)
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

// testLedger wires the subscription ledger to real deposit, agreement, token
// and breaker services sharing one transaction runner.
type testLedger struct {
	svc        *Service
	store      *store.InMemoryStore
	faults     *faultyStore
	tokenFault *faultyToken
	deposits   *depositservice.Service
	agreements *agreementservice.Service
	token      *tokenservice.Service
	guard      *breaker.Guard
	oracle     *stubOracle
	compliance *fakeCompliance
	audit      *auditmemory.InMemoryStore
	nonce      uint64
}

func newTestLedger(opts ...Option) (*testLedger, error) {
	runner := tx.NewLockRunner(0)
	auth := access.NewAuthorizer(map[access.Capability][]id.Address{
		access.Operator: {operator},
		access.Keeper:   {keeper},
		access.Pauser:   {pauser},
	})
	l := &testLedger{
		store:      store.NewInMemoryStore(),
		oracle:     &stubOracle{healthy: true},
		compliance: &fakeCompliance{denied: map[id.Address]bool{}},
		audit:      auditmemory.NewInMemoryStore(),
	}
	pub := publisher.NewPublisher(l.audit)

	deposits, err := depositservice.New(depositstore.NewInMemoryStore(), auth,
		depositservice.WithTxRunner(runner), depositservice.WithAuditPublisher(pub))
	if err != nil {
		return nil, err
	}
	if err := deposits.Seed(context.Background(),
		[]depositmodels.Operator{{Address: operator, PublicKey: opKey.Public().(ed25519.PublicKey)}},
		[]depositmodels.TokenConfig{{Chain: "ethereum", Token: "USDC", Stable: true}},
	); err != nil {
		return nil, err
	}
	l.deposits = deposits
	l.agreements = agreementservice.New(agreementstore.NewInMemoryStore(), auth,
		agreementservice.WithTxRunner(runner), agreementservice.WithAuditPublisher(pub))
	l.token = tokenservice.New(tokenstore.NewInMemoryStore(), ledger,
		tokenservice.WithTxRunner(runner), tokenservice.WithAuditPublisher(pub))
	l.faults = &faultyStore{InMemoryStore: l.store}
	l.tokenFault = &faultyToken{Service: l.token}
	l.guard = breaker.New(flags.NewInMemoryStore(), l.oracle, auth, breaker.WithTxRunner(runner))

	base := []Option{WithTxRunner(runner), WithAuditPublisher(pub)}
	l.svc, err = New(l.faults, Dependencies{
		Compliance: l.compliance,
		Credits:    l.deposits,
		Agreements: l.agreements,
		Token:      l.tokenFault,
		Guard:      l.guard,
	}, auth, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// fund credits holder with usd through a signed stable-coin proof at time at.
func (l *testLedger) fund(holder id.Address, usd decimal.Decimal, at time.Time) error {
	l.nonce++
	p := &depositmodels.Proof{
		Holder:       holder,
		SourceChain:  "ethereum",
		SourceTxHash: "0xfeed",
		SourceToken:  "USDC",
		SourceAmount: usd,
		USDAmount:    usd,
		Nonce:        l.nonce,
		Timestamp:    at.Add(-time.Minute),
	}
	hash, err := proof.Hash(p)
	if err != nil {
		return err
	}
	if p.OperatorSignature, err = proof.Sign(hash, operator, opKey); err != nil {
		return err
	}
	_, err = l.deposits.SubmitProof(testutil.Ctx(operator, at), p)
	return err
}

func (l *testLedger) credit(holder id.Address) decimal.Decimal {
	c, err := l.deposits.Credit(context.Background(), holder)
	if err != nil {
		return decimal.NewFromInt(-1)
	}
	return c.AmountUSD
}

func doc(n byte) id.Hash {
	var h id.Hash
	h[0] = 0xd0
	h[31] = n
	return h
}

func errCode(err error) dErrors.Code {
	if err == nil {
		return ""
	}
	return dErrors.CodeOf(err)
}
