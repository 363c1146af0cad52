// Package gitops wraps go-git with the operations the release pipeline
// performs: staging, committing, tagging, pushing, and reading history.
// All errors can be checked using errors.Is().
package gitops

import (
	"errors"
	"fmt"
)

// ErrNoCommits is returned when the repository history is empty.
var ErrNoCommits = errors.New("repository has no commits")

// ErrEmptyCommit is returned when a commit is attempted with nothing staged.
var ErrEmptyCommit = errors.New("no changes staged for commit")

// WrapError wraps an error with additional context while preserving the
// ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
