package main

import (
	"database/sql"
	"time"

	agreementservice "aurum/internal/agreement/service"
	agreementstore "aurum/internal/agreement/store"
	"aurum/internal/breaker"
	complianceservice "aurum/internal/compliance/service"
	compliancestore "aurum/internal/compliance/store"
	coverageservice "aurum/internal/coverage/service"
	coveragestore "aurum/internal/coverage/store"
	depositservice "aurum/internal/deposit/service"
	depositstore "aurum/internal/deposit/store"
	identityservice "aurum/internal/identity/service"
	identitystore "aurum/internal/identity/store"
	"aurum/internal/platform/flags"
	subscriptionservice "aurum/internal/subscription/service"
	subscriptionstore "aurum/internal/subscription/store"
	tokenservice "aurum/internal/token/service"
	tokenstore "aurum/internal/token/store"
	yieldservice "aurum/internal/yield/service"
	yieldstore "aurum/internal/yield/store"
	"aurum/pkg/platform/audit"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	auditpostgres "aurum/pkg/platform/audit/store/postgres"
	"aurum/pkg/platform/tx"
)

// lockTimeout bounds how long an in-memory ledger operation waits for the
// ledger lock.
const lockTimeout = 5 * time.Second

// stores is one persistence backend for every module plus the runner that
// makes a ledger operation atomic across them.
type stores struct {
	identity     identityservice.Store
	compliance   complianceservice.Store
	agreement    agreementservice.Store
	coverage     coverageservice.Store
	deposit      depositservice.Store
	subscription subscriptionservice.Store
	token        tokenservice.Store
	yield        yieldservice.Store
	flags        breaker.FlagStore
	audit        audit.Store
	// outbox is set only when audit events land in the PostgreSQL outbox.
	outbox *auditpostgres.Store
	runner tx.Runner
}

func newMemoryStores() *stores {
	return &stores{
		identity:     identitystore.NewInMemoryStore(),
		compliance:   compliancestore.NewInMemoryStore(),
		agreement:    agreementstore.NewInMemoryStore(),
		coverage:     coveragestore.NewInMemoryStore(),
		deposit:      depositstore.NewInMemoryStore(),
		subscription: subscriptionstore.NewInMemoryStore(),
		token:        tokenstore.NewInMemoryStore(),
		yield:        yieldstore.NewInMemoryStore(),
		flags:        flags.NewInMemoryStore(),
		audit:        auditmemory.NewInMemoryStore(),
		runner:       tx.NewLockRunner(lockTimeout),
	}
}

func newPostgresStores(db *sql.DB) *stores {
	outbox := auditpostgres.New(db)
	return &stores{
		identity:     identitystore.NewPostgres(db),
		compliance:   compliancestore.NewPostgres(db),
		agreement:    agreementstore.NewPostgres(db),
		coverage:     coveragestore.NewPostgres(db),
		deposit:      depositstore.NewPostgres(db),
		subscription: subscriptionstore.NewPostgres(db),
		token:        tokenstore.NewPostgres(db),
		yield:        yieldstore.NewPostgres(db),
		flags:        flags.NewPostgres(db),
		audit:        outbox,
		outbox:       outbox,
		runner:       tx.NewSQLRunner(db),
	}
}
