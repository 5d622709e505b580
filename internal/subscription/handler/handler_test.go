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

	"aurum/internal/subscription/handler/mocks"
	"aurum/internal/subscription/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type SubscriptionHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestSubscriptionHandlerSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionHandlerSuite))
}

func (s *SubscriptionHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

var (
	alice = testutil.Address(0x10)
	t0    = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	hash  = id.Hash{0xd0, 31: 0x01}
)

func sample(subID id.SubscriptionID) *models.Subscription {
	return &models.Subscription{
		ID:               subID,
		Holder:           alice,
		DepositUSD:       decimal.New(20000, 18),
		EntryPriceUSD:    decimal.New(20000, 18),
		UnitsAllocated:   decimal.NewFromInt(1),
		LockMode:         models.LockStandard,
		CliffEndTime:     t0.Add(150 * 24 * time.Hour),
		DocumentHash:     hash,
		SubscriptionTime: t0,
	}
}

func (s *SubscriptionHandlerSuite) subscribeBody() map[string]any {
	return map[string]any{
		"holder":           alice.String(),
		"usd_amount":       "20000000000000000000000",
		"lock_mode":        "standard",
		"document_hash":    hash.String(),
		"document_locator": "ipfs://agreement",
	}
}

func (s *SubscriptionHandlerSuite) TestSubscribe() {
	s.Run("created", func() {
		subID := id.NewSubscriptionID()
		s.service.EXPECT().Subscribe(gomock.Any(), gomock.Cond(func(in models.Intent) bool {
			return in.Holder == alice && in.LockMode == models.LockStandard &&
				in.DocumentHash == hash && in.USDAmount.Equal(decimal.New(20000, 18))
		})).Return(sample(subID), nil)

		req := testutil.At(testutil.NewJSONRequest(s.T(), http.MethodPost, "/subscriptions", s.subscribeBody()), t0)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[SubscriptionResponse](s.T(), rr)
		s.Equal(subID.String(), resp.ID)
		s.Equal("1", resp.UnitsAllocated)
		s.Equal(string(models.StateCreated), resp.State)
		s.Nil(resp.ExtendedHoldEndTime)
	})

	s.Run("document replay maps to conflict", func() {
		s.service.EXPECT().Subscribe(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDocumentReplay, "document already used"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/subscriptions", s.subscribeBody()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeDocumentReplay))
	})

	s.Run("unknown lock mode never reaches the service", func() {
		body := s.subscribeBody()
		body["lock_mode"] = "forever"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/subscriptions", body))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("missing locator", func() {
		body := s.subscribeBody()
		delete(body, "document_locator")
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/subscriptions", body))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *SubscriptionHandlerSuite) TestMature() {
	subID := id.NewSubscriptionID()

	s.Run("matured", func() {
		sub := sample(subID)
		sub.Matured = true
		sub.MaturedAt = sub.CliffEndTime
		s.service.EXPECT().Mature(gomock.Any(), alice, subID).Return(sub, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/subscriptions/"+subID.String()+"/mature", map[string]any{"holder": alice.String()}))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SubscriptionResponse](s.T(), rr)
		s.True(resp.Matured)
		s.Equal(string(models.StateMatured), resp.State)
		s.Require().NotNil(resp.MaturedAt)
	})

	s.Run("cliff not ended", func() {
		s.service.EXPECT().Mature(gomock.Any(), alice, subID).
			Return(nil, dErrors.New(dErrors.CodeCliffNotEnded, "cliff has not ended"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/subscriptions/"+subID.String()+"/mature", map[string]any{"holder": alice.String()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeCliffNotEnded))
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/subscriptions/not-a-uuid/mature", map[string]any{"holder": alice.String()}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *SubscriptionHandlerSuite) TestMatureBatch() {
	ok, bad := id.NewSubscriptionID(), id.NewSubscriptionID()
	s.service.EXPECT().MatureBatch(gomock.Any(), []models.MaturationRef{
		{Holder: alice, ID: ok},
		{Holder: alice, ID: bad},
	}).Return([]models.MaturationOutcome{
		{Holder: alice, ID: ok, Matured: true, UnitsMinted: decimal.NewFromInt(1)},
		{Holder: alice, ID: bad, UnitsMinted: decimal.Zero, Error: string(dErrors.CodeCliffNotEnded), ErrorMessage: "cliff has not ended"},
	})

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/subscriptions/mature-batch",
		map[string]any{"items": []map[string]string{
			{"holder": alice.String(), "id": ok.String()},
			{"holder": alice.String(), "id": bad.String()},
		}}))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "matured", float64(1))
	testutil.AssertJSONContains(s.T(), rr, "failed", float64(1))

	s.Run("empty batch", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/subscriptions/mature-batch",
			map[string]any{"items": []any{}}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *SubscriptionHandlerSuite) TestReads() {
	subID := id.NewSubscriptionID()

	s.Run("get", func() {
		s.service.EXPECT().Get(gomock.Any(), subID).Return(sample(subID), nil)
		req := testutil.At(testutil.NewRequest(s.T(), http.MethodGet, "/subscriptions/"+subID.String()), t0.Add(200*24*time.Hour))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SubscriptionResponse](s.T(), rr)
		s.Equal(string(models.StateMaturable), resp.State)
	})

	s.Run("get unknown", func() {
		s.service.EXPECT().Get(gomock.Any(), subID).Return(nil, dErrors.New(dErrors.CodeNotFound, "subscription not found"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/subscriptions/"+subID.String()))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("by holder", func() {
		s.service.EXPECT().ListByHolder(gomock.Any(), alice).Return([]models.Subscription{*sample(subID)}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/holders/"+alice.String()+"/subscriptions"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONHasKey(s.T(), rr, "subscriptions")
	})

	s.Run("due with limit", func() {
		s.service.EXPECT().DueForMaturation(gomock.Any(), 5).Return(nil, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/subscriptions/due?limit=5"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("due with bad limit", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/subscriptions/due?limit=-2"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("stats", func() {
		s.service.EXPECT().Stats(gomock.Any()).Return(&models.Stats{
			Subscriptions:  3,
			Matured:        1,
			AllocatedUnits: decimal.NewFromInt(4),
			MaturedUnits:   decimal.NewFromInt(1),
			ProgramCap:     decimal.NewFromInt(50000),
		}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/subscriptions/stats"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "remaining_units", "49996")
	})
}
