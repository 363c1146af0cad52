// Package coverage compares current code coverage against the recorded
// baseline and produces a pass/fail verdict with a formatted message.
package coverage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Unavailable is the sentinel a Source returns when no coverage report exists.
const Unavailable float64 = -1

// ErrNoBaselineCoverage is returned when the coverage check runs without a
// configured baseline. See the "baselineCoverage" section of the README.
var ErrNoBaselineCoverage = errors.New(
	"no baseline coverage configured (set baselineCoverage in .pr-bumper.yml, see README#baselinecoverage)")

// ErrNoCurrentCoverage is returned when no coverage report is found for the
// current build.
var ErrNoCurrentCoverage = errors.New("no current coverage report found")

// DroppedError indicates current coverage fell below the baseline.
// Its message carries the exact before/after percentages and the magnitude
// of the drop, rendered to two decimal places.
type DroppedError struct {
	Baseline float64
	Current  float64
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("Code Coverage: `%.2f%%` (dropped `%.2f%%` from `%.2f%%`)",
		e.Current, e.Baseline-e.Current, e.Baseline)
}

// Source reads the current build's coverage percentage.
// Implementations return Unavailable when no report exists.
type Source interface {
	CurrentCoverage() float64
}

// Commenter posts a message on the pull request under build.
// Posting is best effort: implementations log failures and never return them.
type Commenter interface {
	MaybePostComment(ctx context.Context, prNumber int, message string, isError bool)
}

// Gate runs the coverage comparison for the check flow.
type Gate struct {
	source    Source
	commenter Commenter
	log       *slog.Logger
}

// NewGate creates a coverage gate.
func NewGate(source Source, commenter Commenter, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{source: source, commenter: commenter, log: log}
}

// Compare produces the verdict message for current against baseline.
// It returns a DroppedError for any negative delta; there is no tolerance band.
func Compare(baseline, current float64) (string, error) {
	delta := current - baseline
	switch {
	case delta < 0:
		return "", &DroppedError{Baseline: baseline, Current: current}
	case delta == 0:
		return fmt.Sprintf("Code Coverage: `%.2f%%` (no change)", current), nil
	default:
		return fmt.Sprintf("Code Coverage: `%.2f%%` (increased `%.2f%%` from `%.2f%%`)",
			current, delta, baseline), nil
	}
}

// Check compares the current coverage against the configured baseline and
// posts the verdict to the PR. Comment posting failures never mask the
// verdict. hasBaseline is false when no baseline is configured, which is an
// error for this operation.
func (g *Gate) Check(ctx context.Context, prNumber int, baseline float64, hasBaseline bool) error {
	if !hasBaseline {
		g.comment(ctx, prNumber, ErrNoBaselineCoverage.Error(), true)
		return ErrNoBaselineCoverage
	}

	current := g.source.CurrentCoverage()
	if current == Unavailable {
		g.comment(ctx, prNumber, ErrNoCurrentCoverage.Error(), true)
		return ErrNoCurrentCoverage
	}

	message, err := Compare(baseline, current)
	if err != nil {
		g.comment(ctx, prNumber, err.Error(), true)
		return err
	}

	g.log.Info("coverage check passed", "message", message)
	g.comment(ctx, prNumber, message, false)
	return nil
}

func (g *Gate) comment(ctx context.Context, prNumber int, message string, isError bool) {
	if g.commenter == nil {
		return
	}
	g.commenter.MaybePostComment(ctx, prNumber, message, isError)
}
