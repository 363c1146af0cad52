// Package pipeline implements the conditional release pipeline: an ordered
// sequence of stages that each inspect configuration and the accumulating
// release state, then either perform a mutation or log a skip reason. The
// orchestrator sequences the stages for the check (PR build) and bump
// (merge build) flows.
package pipeline

import "github.com/heshamMassoud/pr-bumper/internal/scope"

// State is the single mutable accumulator threaded through the pipeline.
// It is created fresh per run, owned exclusively by the Orchestrator for the
// duration of one execution, and discarded at the end.
type State struct {
	// Scope is set once before any mutating stage runs.
	Scope scope.Scope

	// Version is the bumped version. Empty means no release: the bump
	// stage only sets it when Scope is not none, so downstream stages can
	// detect "no release" by its absence.
	Version string

	// Changelog is the entry text for this release, taken from the PR.
	Changelog string

	// ModifiedFiles records, in pipeline order, every file a stage mutated
	// on disk. The commit stage acts if and only if it is non-empty.
	ModifiedFiles []string
}

// AddModified appends path to the modified-file set exactly once,
// preserving insertion order.
func (s *State) AddModified(path string) {
	for _, existing := range s.ModifiedFiles {
		if existing == path {
			return
		}
	}
	s.ModifiedFiles = append(s.ModifiedFiles, path)
}
