package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/audit/publisher"
	"aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/requestcontext"
)

const (
	admin   = id.Address("0x00000000000000000000000000000000000000a1")
	officer = id.Address("0x00000000000000000000000000000000000000b2")
	holder  = id.Address("0x00000000000000000000000000000000000000c3")
)

type AuthorizerSuite struct {
	suite.Suite
	auth  *Authorizer
	store *memory.InMemoryStore
}

func TestAuthorizerSuite(t *testing.T) {
	suite.Run(t, new(AuthorizerSuite))
}

func (s *AuthorizerSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.auth = NewAuthorizer(map[Capability][]id.Address{
		Admin:             {admin},
		ComplianceOfficer: {officer},
	}, WithAuditPublisher(publisher.NewPublisher(s.store)))
}

func as(actor id.Address) context.Context {
	return requestcontext.WithActor(context.Background(), actor)
}

func (s *AuthorizerSuite) TestRequire() {
	s.Run("anonymous is unauthorized", func() {
		err := s.auth.Require(context.Background(), Operator)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("direct grant passes", func() {
		s.NoError(s.auth.Require(as(officer), ComplianceOfficer))
	})

	s.Run("admin implies everything", func() {
		s.NoError(s.auth.Require(as(admin), Pauser))
	})

	s.Run("missing grant is forbidden and audited", func() {
		err := s.auth.Require(as(holder), Pauser)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		events, _ := s.store.ListByEntity(context.Background(), holder.String())
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventAccessDenied), events[0].Action)
	})
}

func (s *AuthorizerSuite) TestRequireSelfOr() {
	s.NoError(s.auth.RequireSelfOr(as(holder), holder, Operator))
	s.NoError(s.auth.RequireSelfOr(as(admin), holder, Operator))
	err := s.auth.RequireSelfOr(as(officer), holder, Operator)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *AuthorizerSuite) TestGrantAndRevoke() {
	s.Require().NoError(s.auth.Grant(as(admin), holder, Keeper))
	s.True(s.auth.Has(holder, Keeper))
	s.Equal([]Capability{Keeper}, s.auth.Capabilities(holder))

	s.Require().NoError(s.auth.Revoke(as(admin), holder, Keeper))
	s.False(s.auth.Has(holder, Keeper))

	err := s.auth.Grant(as(officer), holder, Keeper)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.auth.Revoke(as(admin), admin, Admin)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AuthorizerSuite) TestParseCapability() {
	c, err := ParseCapability("pauser")
	s.Require().NoError(err)
	s.Equal(Pauser, c)

	_, err = ParseCapability("root")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
