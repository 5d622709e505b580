package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/access"
	"aurum/internal/agreement/store"
	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/audit/publisher"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/testutil"
)

var (
	admin    = testutil.Address(0x01)
	operator = testutil.Address(0x03)
	holder   = testutil.Address(0x10)
	other    = testutil.Address(0x11)
	t0       = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	docHash  = id.HashFromBytes([]byte("subscription-agreement-0001-sha3"))
)

type AgreementServiceSuite struct {
	suite.Suite
	svc   *Service
	audit *auditmemory.InMemoryStore
	ctx   context.Context
}

func TestAgreementServiceSuite(t *testing.T) {
	suite.Run(t, new(AgreementServiceSuite))
}

func (s *AgreementServiceSuite) SetupTest() {
	auth := access.NewAuthorizer(map[access.Capability][]id.Address{
		access.Admin:    {admin},
		access.Operator: {operator},
	})
	s.audit = auditmemory.NewInMemoryStore()
	s.svc = New(store.NewInMemoryStore(), auth, WithAuditPublisher(publisher.NewPublisher(s.audit)))
	s.ctx = testutil.Ctx(holder, t0)
}

func (s *AgreementServiceSuite) TestRecordAndVerify() {
	r, err := s.svc.Record(s.ctx, holder, docHash, "ipfs://bafy-agreement", "subscription_agreement")
	s.Require().NoError(err)
	s.Equal(holder, r.Signer)
	s.Equal(holder, r.Notary)
	s.Equal(t0, r.RecordedAt)

	ok, err := s.svc.Verify(s.ctx, docHash, "ipfs://bafy-agreement")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.svc.Verify(s.ctx, docHash, "ipfs://bafy-agreement/")
	s.Require().NoError(err)
	s.False(ok, "locator must match exactly")

	ok, err = s.svc.Verify(s.ctx, id.HashFromBytes([]byte("unknown")), "ipfs://bafy-agreement")
	s.Require().NoError(err)
	s.False(ok)

	events, _ := s.audit.ListByEntity(s.ctx, docHash.String())
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventAgreementRecorded), events[0].Action)
}

func (s *AgreementServiceSuite) TestDocumentUniqueness() {
	_, err := s.svc.Record(s.ctx, holder, docHash, "ipfs://a", "subscription_agreement")
	s.Require().NoError(err)

	s.Run("second record is rejected", func() {
		_, err := s.svc.Record(testutil.Ctx(operator, t0), other, docHash, "ipfs://b", "subscription_agreement")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
		s.False(dErrors.HasCode(err, dErrors.CodeDocumentRevoked))
	})

	s.Run("revoked hash stays taken", func() {
		_, err := s.svc.Revoke(testutil.Ctx(admin, t0), docHash, "superseded")
		s.Require().NoError(err)

		_, err = s.svc.Record(s.ctx, holder, docHash, "ipfs://a", "subscription_agreement")
		s.True(dErrors.HasCode(err, dErrors.CodeDocumentRevoked))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))

		ok, err := s.svc.Verify(s.ctx, docHash, "ipfs://a")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("revocation is terminal", func() {
		_, err := s.svc.Revoke(testutil.Ctx(admin, t0), docHash, "again")
		s.True(dErrors.HasCode(err, dErrors.CodeDocumentRevoked))
	})
}

func (s *AgreementServiceSuite) TestAuthorization() {
	s.Run("only the signer or an operator records", func() {
		_, err := s.svc.Record(testutil.Ctx(other, t0), holder, docHash, "ipfs://a", "subscription_agreement")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("only admins revoke", func() {
		_, err := s.svc.Record(s.ctx, holder, docHash, "ipfs://a", "subscription_agreement")
		s.Require().NoError(err)
		_, err = s.svc.Revoke(testutil.Ctx(operator, t0), docHash, "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("revoking unknown document", func() {
		_, err := s.svc.Revoke(testutil.Ctx(admin, t0), id.HashFromBytes([]byte("missing")), "x")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AgreementServiceSuite) TestValidation() {
	_, err := s.svc.Record(s.ctx, holder, id.Hash{}, "ipfs://a", "subscription_agreement")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Record(s.ctx, holder, docHash, " ", "subscription_agreement")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	exists, err := s.svc.Exists(s.ctx, docHash)
	s.Require().NoError(err)
	s.False(exists, "rejected records are not stored")
}

func (s *AgreementServiceSuite) TestValidateMatchesRecord() {
	long := "ipfs://" + strings.Repeat("a", 600)

	s.Require().NoError(s.svc.Validate(s.ctx, holder, docHash, "ipfs://a", "subscription_agreement"))

	err := s.svc.Validate(s.ctx, holder, docHash, long, "subscription_agreement")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.svc.Record(s.ctx, holder, docHash, long, "subscription_agreement")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	err = s.svc.Validate(s.ctx, other, docHash, "ipfs://a", "subscription_agreement")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	exists, err := s.svc.Exists(s.ctx, docHash)
	s.Require().NoError(err)
	s.False(exists, "validation writes nothing")
}
