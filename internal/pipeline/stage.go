package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// Stage is one conditional pipeline step: a pure predicate deciding whether
// the stage acts, plus the effectful action itself. Separating the two keeps
// skip reasons unit-testable apart from the actions.
type Stage struct {
	// Name identifies the stage in logs and error messages.
	Name string

	// ShouldRun inspects configuration and state and returns whether the
	// stage acts. When false, the returned reason is logged.
	ShouldRun func(s *State) (bool, string)

	// Run performs the stage's mutation against the shared state.
	Run func(ctx context.Context, s *State) error
}

// runStages folds the state through the stages in order. Each skip reason is
// logged distinctly; the first stage error aborts the remaining stages and
// propagates unmodified. No stage is retried.
func runStages(ctx context.Context, log *slog.Logger, stages []Stage, state *State) error {
	for _, stage := range stages {
		ok, reason := stage.ShouldRun(state)
		if !ok {
			log.Info("skipping stage", "stage", stage.Name, "reason", reason)
			continue
		}

		log.Info("running stage", "stage", stage.Name)
		if err := stage.Run(ctx, state); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}
	return nil
}
