package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aurum/internal/identity/handler/mocks"
	"aurum/internal/identity/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type IdentityHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

const holder = id.Address("0x0000000000000000000000000000000000000010")

func (s *IdentityHandlerSuite) TestIssue() {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Run("parses body into a domain request", func() {
		s.service.EXPECT().Issue(gomock.Any(), models.IssueRequest{
			Holder:        holder,
			KYCProvider:   "sumsub",
			KYCSessionID:  "sess-1",
			KYCLevel:      models.KYCEnhanced,
			Accreditation: models.Professional,
			Jurisdiction:  "CH",
			Validity:      time.Hour,
		}).Return(&models.Record{
			Holder: holder, KYCProvider: "sumsub", KYCLevel: models.KYCEnhanced,
			Accreditation: models.Professional, Jurisdiction: "CH",
			IssuedAt: issued, ExpiresAt: issued.Add(time.Hour),
		}, nil)

		req := testutil.At(testutil.NewJSONRequest(s.T(), http.MethodPost, "/identities", map[string]any{
			"holder":           " " + holder.String() + " ",
			"kyc_provider":     "sumsub",
			"kyc_session_id":   "sess-1",
			"kyc_level":        "enhanced",
			"accreditation":    "Professional",
			"jurisdiction":     "ch",
			"validity_seconds": 3600,
		}), issued)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RecordResponse](s.T(), rr)
		s.Equal("valid", resp.Status)
		s.Equal("Enhanced", resp.KYCLevel)
	})

	s.Run("rejects unknown level before calling the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/identities", map[string]any{
			"holder":         holder.String(),
			"kyc_provider":   "sumsub",
			"kyc_session_id": "sess-1",
			"kyc_level":      "platinum",
			"jurisdiction":   "CH",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})

	s.Run("maps duplicate identity to conflict", func() {
		s.service.EXPECT().Issue(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicateIdentity, "holder already has an active identity"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/identities", map[string]any{
			"holder":         holder.String(),
			"kyc_provider":   "sumsub",
			"kyc_session_id": "sess-1",
			"kyc_level":      "Basic",
			"jurisdiction":   "CH",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeDuplicateIdentity))
	})
}

func (s *IdentityHandlerSuite) TestIsValid() {
	s.service.EXPECT().IsValid(gomock.Any(), holder).Return(true, nil)
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/identities/"+holder.String()+"/valid"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "valid", true)
}

func (s *IdentityHandlerSuite) TestRevokeRequiresReason() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/identities/"+holder.String()+"/revoke", map[string]any{"reason": "  "}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *IdentityHandlerSuite) TestGetUnknownHolder() {
	s.service.EXPECT().Get(gomock.Any(), holder).Return(nil, dErrors.New(dErrors.CodeNotFound, "holder has no identity"))
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/identities/"+holder.String()))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func (s *IdentityHandlerSuite) TestStats() {
	s.service.EXPECT().Stats(gomock.Any()).Return(models.Stats{
		Active:          2,
		ByLevel:         map[models.KYCLevel]int{models.KYCBasic: 2},
		ByAccreditation: map[models.Accreditation]int{models.AccreditationNone: 2},
	}, nil)
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/identities/stats"))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[StatsResponse](s.T(), rr)
	s.Equal(2, resp.ByLevel["Basic"])
}
