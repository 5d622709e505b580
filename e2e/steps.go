package e2e

import (
	"github.com/cucumber/godog"

	"aurum/e2e/steps/common"
	"aurum/e2e/steps/ledger"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Actors, generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Identity, breaker and yield shortcuts
	ledger.RegisterSteps(ctx, tc)
}
