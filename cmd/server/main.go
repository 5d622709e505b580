package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"aurum/internal/access"
	"aurum/internal/admin"
	agreementhandler "aurum/internal/agreement/handler"
	agreementmetrics "aurum/internal/agreement/metrics"
	agreementservice "aurum/internal/agreement/service"
	"aurum/internal/breaker"
	breakerhandler "aurum/internal/breaker/handler"
	compliancehandler "aurum/internal/compliance/handler"
	compliancemetrics "aurum/internal/compliance/metrics"
	complianceservice "aurum/internal/compliance/service"
	compliancestore "aurum/internal/compliance/store"
	coveragehandler "aurum/internal/coverage/handler"
	coveragemetrics "aurum/internal/coverage/metrics"
	coverageservice "aurum/internal/coverage/service"
	"aurum/internal/deposit/disburse"
	deposithandler "aurum/internal/deposit/handler"
	depositmetrics "aurum/internal/deposit/metrics"
	"aurum/internal/deposit/price"
	depositservice "aurum/internal/deposit/service"
	identityhandler "aurum/internal/identity/handler"
	identitymetrics "aurum/internal/identity/metrics"
	identityservice "aurum/internal/identity/service"
	jwttoken "aurum/internal/jwt_token"
	"aurum/internal/keeper"
	"aurum/internal/platform/config"
	"aurum/internal/platform/httpserver"
	"aurum/internal/platform/kafka"
	"aurum/internal/platform/logger"
	"aurum/internal/platform/metrics"
	"aurum/internal/platform/postgres"
	"aurum/internal/platform/redis"
	subscriptionhandler "aurum/internal/subscription/handler"
	subscriptionmetrics "aurum/internal/subscription/metrics"
	subscriptionservice "aurum/internal/subscription/service"
	tokenhandler "aurum/internal/token/handler"
	tokenmetrics "aurum/internal/token/metrics"
	tokenservice "aurum/internal/token/service"
	httptransport "aurum/internal/transport/http"
	yieldhandler "aurum/internal/yield/handler"
	yieldmetrics "aurum/internal/yield/metrics"
	yieldservice "aurum/internal/yield/service"
	"aurum/pkg/platform/audit/publisher"
	"aurum/pkg/platform/audit/worker"
	"aurum/pkg/platform/circuit"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run wires the ledger and blocks until SIGINT or SIGTERM. Business logic
// lives in the internal service packages.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if cfg.ProgramPath == "" {
		return errors.New("AURUM_PROGRAM_FILE is required")
	}
	program, err := config.LoadProgram(cfg.ProgramPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checks := map[string]httptransport.HealthCheck{}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	var st *stores
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		st = newPostgresStores(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres persistence")
	} else {
		st = newMemoryStores()
		log.Warn("DATABASE_URL not set, ledger state is kept in memory")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var cooldowns complianceservice.CooldownStore = compliancestore.NewInMemoryCooldowns()
	if rc != nil {
		defer rc.Close()
		cooldowns = compliancestore.NewRedisCooldowns(rc.Client)
		checks["redis"] = rc.Health
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		checks["kafka"] = producer.Ping
	}

	auditPublisher := publisher.NewPublisher(st.audit, publisher.WithLogger(log))
	defer auditPublisher.Close()

	ledger, err := wire(ctx, wiring{
		cfg:       cfg,
		program:   program,
		stores:    st,
		cooldowns: cooldowns,
		producer:  producer,
		audit:     auditPublisher,
		reg:       reg,
		log:       log,
	})
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Validator: jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)),
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Checks:    checks,
	}, ledger.modules...)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting aurum ledger", "addr", cfg.Server.Addr, "program", program.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if st.outbox != nil && producer != nil {
		relay := worker.NewRelay(st.outbox, producer, cfg.Kafka.TopicPrefix,
			worker.WithInterval(cfg.Kafka.RelayInterval),
			worker.WithLogger(log),
		)
		if err := producer.EnsureTopics(ctx, relay.Topics()...); err != nil {
			return err
		}
		g.Go(func() error { return relay.Run(gctx) })
	} else if producer != nil {
		log.Warn("audit relay disabled, it needs the postgres outbox")
	}

	if cfg.Keeper.Enabled {
		k := keeper.New(program.Principals.Keeper,
			keeper.WithYield(ledger.yield),
			keeper.WithSubscriptions(ledger.subscriptions),
			keeper.WithOracle(ledger.coverage),
			keeper.WithInterval(cfg.Keeper.Interval),
			keeper.WithLogger(log),
			keeper.WithMetrics(keeper.NewMetrics(reg)),
		)
		g.Go(func() error { return k.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type wiring struct {
	cfg       config.Config
	program   config.Program
	stores    *stores
	cooldowns complianceservice.CooldownStore
	producer  *kafka.Producer
	audit     *publisher.Publisher
	reg       prometheus.Registerer
	log       *slog.Logger
}

// ledger is the wired module graph. The keeper drives the services directly.
type ledger struct {
	modules       []httptransport.Module
	yield         *yieldservice.Service
	subscriptions *subscriptionservice.Service
	coverage      *coverageservice.Service
}

// wire builds every module over one store backend and seeds the program's
// allow-lists. Seeding is idempotent so restarts against PostgreSQL are safe.
func wire(ctx context.Context, w wiring) (*ledger, error) {
	p := w.program
	st := w.stores

	roleGrants, err := grants(p)
	if err != nil {
		return nil, err
	}
	auth := access.NewAuthorizer(roleGrants, access.WithLogger(w.log), access.WithAuditPublisher(w.audit))

	identity := identityservice.New(st.identity, auth,
		identityservice.WithLogger(w.log),
		identityservice.WithAuditPublisher(w.audit),
		identityservice.WithMetrics(identitymetrics.New(w.reg)),
		identityservice.WithTxRunner(st.runner),
		identityservice.WithDefaultValidity(p.Identity.DefaultValidity),
	)
	if err := identity.Seed(ctx, p.Identity.Providers, p.Identity.Jurisdictions); err != nil {
		return nil, fmt.Errorf("seed identity: %w", err)
	}

	compliance, err := complianceservice.New(st.compliance, w.cooldowns, identity, auth,
		complianceservice.WithLogger(w.log),
		complianceservice.WithAuditPublisher(w.audit),
		complianceservice.WithMetrics(compliancemetrics.New(w.reg)),
		complianceservice.WithTxRunner(st.runner),
		complianceservice.WithRiskThreshold(p.Compliance.GlobalRiskThreshold),
	)
	if err != nil {
		return nil, fmt.Errorf("compliance: %w", err)
	}
	actions, rules, err := complianceSeed(p.Compliance)
	if err != nil {
		return nil, err
	}
	if err := compliance.Seed(ctx, actions, rules); err != nil {
		return nil, fmt.Errorf("seed compliance: %w", err)
	}

	agreements := agreementservice.New(st.agreement, auth,
		agreementservice.WithLogger(w.log),
		agreementservice.WithAuditPublisher(w.audit),
		agreementservice.WithMetrics(agreementmetrics.New(w.reg)),
		agreementservice.WithTxRunner(st.runner),
	)

	coverage := coverageservice.New(st.coverage, st.flags, auth,
		coverageservice.WithLogger(w.log),
		coverageservice.WithAuditPublisher(w.audit),
		coverageservice.WithMetrics(coveragemetrics.New(w.reg)),
		coverageservice.WithTxRunner(st.runner),
		coverageservice.WithParams(coverageParams(p.Coverage)),
	)
	if err := coverage.Seed(ctx, coverageSources(p.Coverage)); err != nil {
		return nil, fmt.Errorf("seed coverage: %w", err)
	}

	guard := breaker.New(st.flags, coverage, auth,
		breaker.WithLogger(w.log),
		breaker.WithAuditPublisher(w.audit),
		breaker.WithMetrics(breaker.NewMetrics(w.reg)),
		breaker.WithTxRunner(st.runner),
	)

	depositOpts := []depositservice.Option{
		depositservice.WithLogger(w.log),
		depositservice.WithAuditPublisher(w.audit),
		depositservice.WithMetrics(depositmetrics.New(w.reg)),
		depositservice.WithTxRunner(st.runner),
		depositservice.WithMaxProofAge(p.Deposit.MaxProofAge),
		depositservice.WithFutureSkew(p.Deposit.FutureSkew),
		depositservice.WithFeeBps(p.Deposit.FeeBps),
	}
	if feed := w.cfg.PriceFeed; feed.URL != "" {
		depositOpts = append(depositOpts, depositservice.WithPriceConverter(price.New(feed.URL,
			price.WithHTTPClient(&http.Client{Timeout: feed.Timeout}),
			price.WithRateLimit(rate.Limit(feed.RequestsPerSecond), feed.Burst),
			price.WithBreaker(circuit.New("price_feed", circuit.WithCooldown(feed.BreakerCooldown))),
			price.WithMaxAge(feed.MaxQuoteAge),
			price.WithLogger(w.log),
			price.WithMetrics(price.NewMetrics(w.reg)),
		)))
	}
	if w.producer != nil {
		depositOpts = append(depositOpts, depositservice.WithDisburser(
			disburse.NewKafkaDisburser(w.producer, w.cfg.Kafka.DisbursementTopic, w.log),
		))
	} else {
		w.log.Warn("KAFKA_BROKERS not set, credit withdrawals are disabled")
	}
	deposits, err := depositservice.New(st.deposit, auth, depositOpts...)
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	operators, tokens, err := depositSeed(p.Deposit)
	if err != nil {
		return nil, err
	}
	if err := deposits.Seed(ctx, operators, tokens); err != nil {
		return nil, fmt.Errorf("seed deposit: %w", err)
	}

	tokenOpts := []tokenservice.Option{
		tokenservice.WithLogger(w.log),
		tokenservice.WithAuditPublisher(w.audit),
		tokenservice.WithMetrics(tokenmetrics.New(w.reg)),
		tokenservice.WithTxRunner(st.runner),
	}
	if p.Token.TransferCompliance {
		tokenOpts = append(tokenOpts, tokenservice.WithTransferCompliance(compliance,
			p.Principals.Treasury, p.Principals.SubscriptionLedger))
	}
	token := tokenservice.New(st.token, p.Principals.SubscriptionLedger, tokenOpts...)

	subscriptions, err := subscriptionservice.New(st.subscription, subscriptionservice.Dependencies{
		Compliance: compliance,
		Credits:    deposits,
		Agreements: agreements,
		Token:      token,
		Guard:      guard,
	}, auth,
		subscriptionservice.WithLogger(w.log),
		subscriptionservice.WithAuditPublisher(w.audit),
		subscriptionservice.WithMetrics(subscriptionmetrics.New(w.reg)),
		subscriptionservice.WithTxRunner(st.runner),
		subscriptionservice.WithParams(subscriptionParams(p.Subscription)),
	)
	if err != nil {
		return nil, fmt.Errorf("subscription: %w", err)
	}

	yp, err := yieldParams(p.Yield)
	if err != nil {
		return nil, err
	}
	yield, err := yieldservice.New(st.yield, yieldservice.Dependencies{
		Token:       token,
		Compliance:  compliance,
		Guard:       guard,
		Allocations: subscriptions,
		Treasury:    p.Principals.Treasury,
	}, auth,
		yieldservice.WithLogger(w.log),
		yieldservice.WithAuditPublisher(w.audit),
		yieldservice.WithMetrics(yieldmetrics.New(w.reg)),
		yieldservice.WithTxRunner(st.runner),
		yieldservice.WithParams(yp),
	)
	if err != nil {
		return nil, fmt.Errorf("yield: %w", err)
	}

	return &ledger{
		modules: []httptransport.Module{
			identityhandler.New(identity, w.log),
			compliancehandler.New(compliance, w.log),
			agreementhandler.New(agreements, w.log),
			coveragehandler.New(coverage, w.log),
			breakerhandler.New(guard, w.log),
			deposithandler.New(deposits, w.log),
			subscriptionhandler.New(subscriptions, w.log),
			tokenhandler.New(token, w.log),
			yieldhandler.New(yield, w.log),
			admin.New(auth, st.audit, w.log),
		},
		yield:         yield,
		subscriptions: subscriptions,
		coverage:      coverage,
	}, nil
}
