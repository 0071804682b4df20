package e2e

import (
	"context"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func initializeScenario(sc *godog.ScenarioContext) {
	tc, err := newTestContext()
	if err != nil {
		panic(err)
	}
	RegisterSteps(sc, tc)
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		tc.close()
		return ctx, err
	})
}
