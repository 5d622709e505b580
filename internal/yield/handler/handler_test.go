package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aurum/internal/yield/handler/mocks"
	"aurum/internal/yield/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type YieldHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestYieldHandlerSuite(t *testing.T) {
	suite.Run(t, new(YieldHandlerSuite))
}

func (s *YieldHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

var (
	alice = testutil.Address(0x10)
	t0    = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
)

func epoch(n id.EpochNumber, finalized bool) *models.Epoch {
	e := &models.Epoch{
		Number:       n,
		StartTime:    t0,
		EndTime:      t0.Add(30 * 24 * time.Hour),
		RateBps:      800,
		TotalClaimed: decimal.Zero,
	}
	if finalized {
		e.Finalized = true
		e.FinalizedAt = e.EndTime
		e.EligibleSupplySnapshot = decimal.NewFromInt(100)
	}
	return e
}

func (s *YieldHandlerSuite) TestStartEpoch() {
	s.Run("created", func() {
		s.service.EXPECT().StartEpoch(gomock.Any(), int64(800)).Return(epoch(1, false), nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs",
			map[string]any{"rate_bps": 800}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[EpochResponse](s.T(), rr)
		s.Equal(uint64(1), resp.Number)
		s.False(resp.Finalized)
		s.Nil(resp.FinalizedAt)
	})

	s.Run("rate out of bounds", func() {
		s.service.EXPECT().StartEpoch(gomock.Any(), int64(5000)).
			Return(nil, dErrors.New(dErrors.CodeRateOutOfBounds, "rate outside bounds"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs",
			map[string]any{"rate_bps": 5000}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeRateOutOfBounds))
	})

	s.Run("non-positive rate never reaches the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs",
			map[string]any{"rate_bps": 0}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *YieldHandlerSuite) TestClaim() {
	s.Run("paid", func() {
		s.service.EXPECT().Claim(gomock.Any(), alice, id.EpochNumber(1)).Return(&models.Claim{
			Epoch: 1, Holder: alice, Amount: decimal.NewFromInt(8), ClaimedAt: t0,
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs/1/claim",
			map[string]any{"holder": alice.String()}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "amount", "8")
		testutil.AssertJSONContains(s.T(), rr, "epoch", float64(1))
	})

	s.Run("already claimed", func() {
		s.service.EXPECT().Claim(gomock.Any(), alice, id.EpochNumber(1)).
			Return(nil, dErrors.New(dErrors.CodeAlreadyClaimed, "already claimed"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs/1/claim",
			map[string]any{"holder": alice.String()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeAlreadyClaimed))
	})

	s.Run("open epoch", func() {
		s.service.EXPECT().Claim(gomock.Any(), alice, id.EpochNumber(2)).
			Return(nil, dErrors.New(dErrors.CodeEpochNotFinalized, "epoch still open"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs/2/claim",
			map[string]any{"holder": alice.String()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeEpochNotFinalized))
	})

	s.Run("treasury short", func() {
		s.service.EXPECT().Claim(gomock.Any(), alice, id.EpochNumber(1)).
			Return(nil, dErrors.New(dErrors.CodeInsufficientTreasuryFunds, "treasury cannot cover"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs/1/claim",
			map[string]any{"holder": alice.String()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusPaymentRequired, string(dErrors.CodeInsufficientTreasuryFunds))
	})

	s.Run("epoch zero", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs/0/claim",
			map[string]any{"holder": alice.String()}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("bad holder", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/epochs/1/claim",
			map[string]any{"holder": "nobody"}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *YieldHandlerSuite) TestClaimMultiple() {
	s.Run("mixed outcome", func() {
		s.service.EXPECT().ClaimMultiple(gomock.Any(), alice, []id.EpochNumber{1, 2}).Return(&models.MultiClaim{
			Holder:  alice,
			Claims:  []models.Claim{{Epoch: 1, Holder: alice, Amount: decimal.NewFromInt(8), ClaimedAt: t0}},
			Skipped: []models.Skipped{{Epoch: 2, Reason: dErrors.CodeEpochNotFinalized}},
			Total:   decimal.NewFromInt(8),
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/claims",
			map[string]any{"holder": alice.String(), "epochs": []int{1, 2}}))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[MultiClaimResponse](s.T(), rr)
		s.Equal("8", resp.Total)
		s.Require().Len(resp.Claims, 1)
		s.Require().Len(resp.Skipped, 1)
		s.Equal(string(dErrors.CodeEpochNotFinalized), resp.Skipped[0].Reason)
	})

	s.Run("empty epoch list", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/yield/claims",
			map[string]any{"holder": alice.String(), "epochs": []int{}}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *YieldHandlerSuite) TestReads() {
	s.Run("claimable", func() {
		s.service.EXPECT().GetClaimableAmount(gomock.Any(), alice, id.EpochNumber(3)).Return(decimal.NewFromInt(5), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/yield/claimable/"+alice.String()+"/3"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "claimable", "5")
	})

	s.Run("current epoch", func() {
		s.service.EXPECT().CurrentEpoch(gomock.Any()).Return(epoch(2, false), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/yield/epochs/current"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "number", float64(2))
	})

	s.Run("finalized epoch", func() {
		s.service.EXPECT().GetEpoch(gomock.Any(), id.EpochNumber(1)).Return(epoch(1, true), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/yield/epochs/1"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[EpochResponse](s.T(), rr)
		s.True(resp.Finalized)
		s.NotNil(resp.FinalizedAt)
		s.Equal("100", resp.EligibleSupplySnapshot)
	})

	s.Run("unknown epoch", func() {
		s.service.EXPECT().GetEpoch(gomock.Any(), id.EpochNumber(9)).Return(nil, dErrors.New(dErrors.CodeNotFound, "epoch not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/yield/epochs/9"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("list epochs", func() {
		s.service.EXPECT().ListEpochs(gomock.Any()).Return([]models.Epoch{*epoch(1, true), *epoch(2, false)}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/yield/epochs"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[map[string][]EpochResponse](s.T(), rr)
		s.Len((*resp)["epochs"], 2)
	})

	s.Run("claims by holder", func() {
		s.service.EXPECT().ListClaims(gomock.Any(), alice).Return([]models.Claim{
			{Epoch: 1, Holder: alice, Amount: decimal.NewFromInt(8), ClaimedAt: t0},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/holders/"+alice.String()+"/yield-claims"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[map[string][]ClaimResponse](s.T(), rr)
		s.Require().Len((*resp)["claims"], 1)
		s.Equal("8", (*resp)["claims"][0].Amount)
	})
}

func (s *YieldHandlerSuite) TestUpkeep() {
	s.Run("check", func() {
		s.service.EXPECT().CheckUpkeep(gomock.Any()).Return(&models.UpkeepStatus{
			Needed: true, CurrentEpoch: 1, ScheduledAt: t0, WindowEnd: t0.Add(6 * time.Hour),
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/yield/upkeep"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "upkeep_needed", true)
	})

	s.Run("perform outside window", func() {
		s.service.EXPECT().PerformUpkeep(gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUpkeepNotNeeded, "upkeep not needed"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/yield/upkeep"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeUpkeepNotNeeded))
	})

	s.Run("perform", func() {
		s.service.EXPECT().PerformUpkeep(gomock.Any()).Return(epoch(2, false), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/yield/upkeep"))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	})
}
