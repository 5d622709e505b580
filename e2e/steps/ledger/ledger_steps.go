package ledger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	ActAs(actor string) error
	Actor() string
	Address(actor string) string
	Do(method, path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers shortcuts that set up ledger state through the API
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	// Identity
	ctx.Step(`^holder "([^"]*)" has a "([^"]*)" identity in "([^"]*)"$`, steps.issueIdentity)
	ctx.Step(`^the identity of "([^"]*)" is revoked for "([^"]*)"$`, steps.revokeIdentity)
	ctx.Step(`^I check whether holder "([^"]*)" has a valid identity$`, steps.checkValid)

	// Breaker
	ctx.Step(`^the ledger is paused because "([^"]*)"$`, steps.pause)
	ctx.Step(`^the ledger is unpaused$`, steps.unpause)

	// Yield
	ctx.Step(`^I check the yield claimable by "([^"]*)" for epoch (\d+)$`, steps.claimable)

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if steps.paused {
			if uerr := steps.unpause(ctx); uerr != nil {
				return ctx, uerr
			}
		}
		return ctx, nil
	})
}

type ledgerSteps struct {
	tc     TestContext
	paused bool
}

// asActor runs fn as actor and restores the scenario's actor afterwards.
func (s *ledgerSteps) asActor(actor string, fn func() error) error {
	previous := s.tc.Actor()
	if err := s.tc.ActAs(actor); err != nil {
		return err
	}
	err := fn()
	if previous != "" {
		if rerr := s.tc.ActAs(previous); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

func (s *ledgerSteps) expect(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *ledgerSteps) issueIdentity(ctx context.Context, holder, level, jurisdiction string) error {
	return s.asActor("compliance_officer", func() error {
		body := map[string]any{
			"holder":         s.tc.Address(holder),
			"kyc_provider":   "sumsub",
			"kyc_session_id": fmt.Sprintf("e2e-%s-%d", holder, time.Now().UnixNano()),
			"kyc_level":      level,
			"accreditation":  "Accredited",
			"jurisdiction":   jurisdiction,
		}
		if err := s.tc.Do(http.MethodPost, "/identities", body); err != nil {
			return err
		}
		// Reruns against a persistent ledger find the holder already issued.
		if s.tc.GetLastResponseStatus() == http.StatusConflict {
			return nil
		}
		return s.expect(http.StatusCreated)
	})
}

func (s *ledgerSteps) revokeIdentity(ctx context.Context, holder, reason string) error {
	return s.asActor("compliance_officer", func() error {
		path := fmt.Sprintf("/identities/%s/revoke", s.tc.Address(holder))
		if err := s.tc.Do(http.MethodPost, path, map[string]any{"reason": reason}); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() >= http.StatusMultipleChoices {
			return fmt.Errorf("revoke failed with %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
		}
		return nil
	})
}

func (s *ledgerSteps) checkValid(ctx context.Context, holder string) error {
	return s.tc.Do(http.MethodGet, fmt.Sprintf("/identities/%s/valid", s.tc.Address(holder)), nil)
}

func (s *ledgerSteps) pause(ctx context.Context, reason string) error {
	return s.asActor("pauser", func() error {
		if err := s.tc.Do(http.MethodPost, "/breaker/pause", map[string]any{"reason": reason}); err != nil {
			return err
		}
		if err := s.expect(http.StatusOK); err != nil {
			return err
		}
		s.paused = true
		return nil
	})
}

func (s *ledgerSteps) unpause(ctx context.Context) error {
	return s.asActor("pauser", func() error {
		if err := s.tc.Do(http.MethodPost, "/breaker/unpause", "{}"); err != nil {
			return err
		}
		if err := s.expect(http.StatusOK); err != nil {
			return err
		}
		s.paused = false
		return nil
	})
}

func (s *ledgerSteps) claimable(ctx context.Context, holder string, epoch int) error {
	return s.tc.Do(http.MethodGet, fmt.Sprintf("/yield/claimable/%s/%d", s.tc.Address(holder), epoch), nil)
}
