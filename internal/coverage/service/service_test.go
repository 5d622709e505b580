package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"aurum/internal/access"
	"aurum/internal/coverage/models"
	"aurum/internal/coverage/store"
	"aurum/internal/platform/flags"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/audit/publisher"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/testutil"
)

var (
	admin     = testutil.Address(0x01)
	keeper    = testutil.Address(0x04)
	pauser    = testutil.Address(0x05)
	custodian = testutil.Address(0x20)
	auditor   = testutil.Address(0x21)
	network   = testutil.Address(0x22)
	stranger  = testutil.Address(0x30)
	t0        = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
)

type CoverageServiceSuite struct {
	suite.Suite
	svc   *Service
	store *store.InMemoryStore
	audit *auditmemory.InMemoryStore
}

func TestCoverageServiceSuite(t *testing.T) {
	suite.Run(t, new(CoverageServiceSuite))
}

func (s *CoverageServiceSuite) SetupTest() {
	auth := access.NewAuthorizer(map[access.Capability][]id.Address{
		access.Admin:  {admin},
		access.Keeper: {keeper},
		access.Pauser: {pauser},
	})
	s.store = store.NewInMemoryStore()
	s.audit = auditmemory.NewInMemoryStore()
	s.svc = New(s.store, flags.NewInMemoryStore(), auth,
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
	)
	s.Require().NoError(s.svc.Seed(context.Background(), []models.Source{
		{ID: "vault-custodian", Reporter: custodian, WeightBps: 4000, Active: true},
		{ID: "independent-auditor", Reporter: auditor, WeightBps: 4000, Active: true},
		{ID: "oracle-network", Reporter: network, WeightBps: 2000, Active: true},
	}))
}

func (s *CoverageServiceSuite) submit(reporter id.Address, source id.SourceID, reserve, issued int64, age time.Duration) (*models.Submission, error) {
	return s.svc.SubmitReport(testutil.Ctx(reporter, t0), source,
		decimal.NewFromInt(reserve), decimal.NewFromInt(issued), t0.Add(-age))
}

func (s *CoverageServiceSuite) healthAt(at time.Time) *models.Health {
	h, err := s.svc.Health(testutil.Ctx(stranger, at))
	s.Require().NoError(err)
	return h
}

func (s *CoverageServiceSuite) TestDeviatingSourceExcludedAndBelowFloorIsUnhealthy() {
	_, err := s.submit(custodian, "vault-custodian", 100, 100, time.Hour)
	s.Require().NoError(err)
	_, err = s.submit(auditor, "independent-auditor", 98, 100, 2*time.Hour)
	s.Require().NoError(err)
	sub, err := s.submit(network, "oracle-network", 150, 100, 30*time.Minute)
	s.Require().NoError(err)

	s.Require().NotNil(sub.Aggregate)
	s.Equal(uint64(9900), sub.Aggregate.CoverageRatioBps)
	s.Equal([]id.SourceID{"oracle-network"}, sub.Aggregate.Excluded)
	s.Equal(uint64(15000), sub.Report.CoverageRatioBps)

	healthy, ratio, err := s.svc.IsHealthy(testutil.Ctx(stranger, t0))
	s.Require().NoError(err)
	s.False(healthy)
	s.Equal(uint64(9900), ratio)
	s.Equal(models.HealthReasonBelowFloor, s.healthAt(t0).Reason)

	history, err := s.svc.History(context.Background(), t0, t0)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(uint64(9900), history[0].CoverageRatioBps)

	events, _ := s.audit.ListAll(context.Background())
	var breached bool
	for _, e := range events {
		if e.Action == string(audit.EventCoverageBreached) {
			breached = true
		}
	}
	s.True(breached)
}

func (s *CoverageServiceSuite) TestFirstReportKeptWhenAggregationFails() {
	sub, err := s.submit(custodian, "vault-custodian", 100, 100, time.Hour)
	s.Require().NoError(err)
	s.Nil(sub.Aggregate)
	s.True(dErrors.HasCode(sub.AggregationError, dErrors.CodeInsufficientSources))

	views, err := s.svc.Sources(testutil.Ctx(stranger, t0))
	s.Require().NoError(err)
	statuses := map[id.SourceID]models.SourceStatus{}
	for _, v := range views {
		statuses[v.Source.ID] = v.Status
	}
	s.Equal(models.SourceActive, statuses["vault-custodian"])
	s.Equal(models.SourceStale, statuses["independent-auditor"])

	s.Equal(models.HealthReasonNoAggregate, s.healthAt(t0).Reason)

	events, _ := s.audit.ListAll(context.Background())
	var failed bool
	for _, e := range events {
		if e.Action == string(audit.EventAggregationFailed) {
			failed = true
		}
	}
	s.True(failed)
}

func (s *CoverageServiceSuite) TestFullCoverageIsHealthyUntilStale() {
	_, err := s.submit(custodian, "vault-custodian", 100, 100, time.Hour)
	s.Require().NoError(err)
	_, err = s.submit(auditor, "independent-auditor", 101, 100, time.Hour)
	s.Require().NoError(err)

	h := s.healthAt(t0)
	s.True(h.Healthy)
	s.Equal(uint64(10050), h.RatioBps)

	h = s.healthAt(t0.Add(24 * time.Hour))
	s.False(h.Healthy)
	s.Equal(models.HealthReasonStale, h.Reason)
}

func (s *CoverageServiceSuite) TestEmergencyHaltOverridesRatio() {
	_, err := s.submit(custodian, "vault-custodian", 100, 100, time.Hour)
	s.Require().NoError(err)
	_, err = s.submit(auditor, "independent-auditor", 100, 100, time.Hour)
	s.Require().NoError(err)
	s.True(s.healthAt(t0).Healthy)

	err = s.svc.EmergencyHalt(testutil.Ctx(stranger, t0), "vault inspection")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	err = s.svc.EmergencyHalt(testutil.Ctx(pauser, t0), " ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	s.Require().NoError(s.svc.EmergencyHalt(testutil.Ctx(pauser, t0), "vault inspection"))
	h := s.healthAt(t0)
	s.False(h.Healthy)
	s.True(h.Halted)
	s.Equal(models.HealthReasonHalted, h.Reason)
	s.Equal(uint64(10000), h.RatioBps)

	s.Require().NoError(s.svc.Resume(testutil.Ctx(pauser, t0)))
	s.True(s.healthAt(t0).Healthy)

	err = s.svc.Resume(testutil.Ctx(pauser, t0))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *CoverageServiceSuite) TestSubmitReportRejections() {
	cases := []struct {
		name     string
		reporter id.Address
		source   id.SourceID
		age      time.Duration
		code     dErrors.Code
	}{
		{"wrong reporter", auditor, "vault-custodian", time.Hour, dErrors.CodeUnauthorized},
		{"unknown source", custodian, "unknown", time.Hour, dErrors.CodeNotFound},
		{"future timestamp", custodian, "vault-custodian", -time.Minute, dErrors.CodeValidation},
		{"older than max age", custodian, "vault-custodian", 25 * time.Hour, dErrors.CodeStaleReport},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.submit(tc.reporter, tc.source, 100, 100, tc.age)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	s.Run("not newer than previous report", func() {
		_, err := s.submit(custodian, "vault-custodian", 100, 100, time.Hour)
		s.Require().NoError(err)
		_, err = s.submit(custodian, "vault-custodian", 100, 100, 2*time.Hour)
		s.True(dErrors.HasCode(err, dErrors.CodeStaleReport))
	})

	s.Run("inactive source", func() {
		_, err := s.svc.SetSourceActive(testutil.Ctx(admin, t0), "oracle-network", false)
		s.Require().NoError(err)
		_, err = s.submit(network, "oracle-network", 100, 100, time.Hour)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *CoverageServiceSuite) TestKeeperAggregationRetainsPreviousOnFailure() {
	_, err := s.submit(custodian, "vault-custodian", 100, 100, time.Hour)
	s.Require().NoError(err)
	_, err = s.submit(auditor, "independent-auditor", 100, 100, time.Hour)
	s.Require().NoError(err)
	before, err := s.svc.Latest(context.Background())
	s.Require().NoError(err)

	_, err = s.svc.Aggregate(testutil.Ctx(stranger, t0))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Aggregate(testutil.Ctx(keeper, t0.Add(30*time.Hour)))
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientSources))

	after, err := s.svc.Latest(context.Background())
	s.Require().NoError(err)
	s.Equal(before.ComputedAt, after.ComputedAt)
}

func (s *CoverageServiceSuite) TestSourceAdministration() {
	_, err := s.svc.RegisterSource(testutil.Ctx(stranger, t0), "new-custodian", custodian, 1000)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.RegisterSource(testutil.Ctx(admin, t0), "new-custodian", custodian, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	src, err := s.svc.RegisterSource(testutil.Ctx(admin, t0), "new-custodian", custodian, 1000)
	s.Require().NoError(err)
	s.True(src.Active)

	src, err = s.svc.SetSourceWeight(testutil.Ctx(admin, t0), "new-custodian", 2500)
	s.Require().NoError(err)
	s.Equal(uint64(2500), src.WeightBps)

	_, err = s.svc.SetSourceWeight(testutil.Ctx(admin, t0), "missing", 2500)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
