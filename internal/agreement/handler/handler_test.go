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

	"aurum/internal/agreement/handler/mocks"
	"aurum/internal/agreement/models"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type AgreementHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestAgreementHandlerSuite(t *testing.T) {
	suite.Run(t, new(AgreementHandlerSuite))
}

func (s *AgreementHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

var (
	signer = id.Address("0x0000000000000000000000000000000000000010")
	hash   = id.HashFromBytes([]byte("subscription-agreement-0001-sha3"))
)

func (s *AgreementHandlerSuite) TestRecord() {
	s.Run("created", func() {
		s.service.EXPECT().Record(gomock.Any(), signer, hash, "ipfs://a", "subscription_agreement").
			Return(&models.Record{
				DocumentHash: hash, Locator: "ipfs://a", DocType: "subscription_agreement",
				Signer: signer, Notary: signer, RecordedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/agreements", map[string]any{
			"signer":        signer.String(),
			"document_hash": hash.String(),
			"locator":       "ipfs://a",
			"doc_type":      "subscription_agreement",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "document_hash", hash.String())
	})

	s.Run("revoked document conflicts", func() {
		s.service.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(dErrors.New(dErrors.CodeAlreadyExists, "already recorded"), dErrors.CodeDocumentRevoked, "was revoked"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/agreements", map[string]any{
			"signer":        signer.String(),
			"document_hash": hash.String(),
			"locator":       "ipfs://a",
			"doc_type":      "subscription_agreement",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeDocumentRevoked))
	})

	s.Run("malformed hash", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/agreements", map[string]any{
			"signer":        signer.String(),
			"document_hash": "0x1234",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
	})
}

func (s *AgreementHandlerSuite) TestVerify() {
	s.service.EXPECT().Verify(gomock.Any(), hash, "ipfs://a").Return(true, nil)
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/agreements/"+hash.String()+"/verify?locator=ipfs://a"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "valid", true)
}
