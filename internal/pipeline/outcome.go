package pipeline

// Outcome is the tagged result of a bump run. Exactly one of the three
// shapes applies: a skipped run (wrong build type), a cancelled run (the
// pipeline must not execute, nothing was mutated), or a completed run
// carrying the final State. Errors travel separately so callers never have
// to inspect error subtypes to tell "nothing to do" from "something broke".
type Outcome struct {
	// State is the final release state of a completed run.
	State *State

	// Cancelled reports that the pipeline short-circuited before any stage
	// executed. Reason carries the human-readable explanation.
	Cancelled bool

	// Skipped reports that the run did not apply to this build type.
	Skipped bool

	// Reason explains a cancelled or skipped outcome.
	Reason string
}

// Completed reports whether the pipeline actually ran to the end.
func (o *Outcome) Completed() bool {
	return !o.Cancelled && !o.Skipped
}
