package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	ActAs(actor string) error
	ActWithExpiredToken(actor string) error
	Anonymous()
	Do(method, path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers actor selection, generic requests and assertions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Actors
	ctx.Step(`^I am the "([^"]*)"$`, steps.actAs)
	ctx.Step(`^I am holder "([^"]*)"$`, steps.actAs)
	ctx.Step(`^I am not authenticated$`, steps.anonymous)
	ctx.Step(`^I am "([^"]*)" with an expired token$`, steps.expired)

	// Requests
	ctx.Step(`^I (GET|DELETE) "([^"]*)"$`, steps.request)
	ctx.Step(`^I (POST|PUT) "([^"]*)"$`, steps.requestEmpty)
	ctx.Step(`^I (POST|PUT) "([^"]*)" with:$`, steps.requestWithBody)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.bodyShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, steps.bodyShouldNotContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) actAs(ctx context.Context, actor string) error {
	return s.tc.ActAs(actor)
}

func (s *commonSteps) anonymous(ctx context.Context) error {
	s.tc.Anonymous()
	return nil
}

func (s *commonSteps) expired(ctx context.Context, actor string) error {
	return s.tc.ActWithExpiredToken(actor)
}

func (s *commonSteps) request(ctx context.Context, method, path string) error {
	return s.tc.Do(method, path, nil)
}

func (s *commonSteps) requestEmpty(ctx context.Context, method, path string) error {
	return s.tc.Do(method, path, "{}")
}

func (s *commonSteps) requestWithBody(ctx context.Context, method, path string, body *godog.DocString) error {
	return s.tc.Do(method, path, body.Content)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldBe(ctx, "error", code)
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("field %s is %T, not a boolean", field, v)
	}
	if fmt.Sprint(b) != expected {
		return fmt.Errorf("expected %s=%s, got %t", field, expected, b)
	}
	return nil
}

func (s *commonSteps) bodyShouldContain(ctx context.Context, fragment string) error {
	if !strings.Contains(string(s.tc.GetLastResponseBody()), fragment) {
		return fmt.Errorf("response does not contain %q: %s", fragment, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) bodyShouldNotContain(ctx context.Context, fragment string) error {
	if strings.Contains(string(s.tc.GetLastResponseBody()), fragment) {
		return fmt.Errorf("response unexpectedly contains %q: %s", fragment, s.tc.GetLastResponseBody())
	}
	return nil
}
