package e2e

import (
	"github.com/cucumber/godog"

	"clearing/e2e/steps/adapter"
	"clearing/e2e/steps/screening"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	adapter.RegisterSteps(ctx, tc)
	screening.RegisterSteps(ctx, tc)
}
