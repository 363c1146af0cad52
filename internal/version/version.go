// Package version applies a bump scope to a semantic version string.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/heshamMassoud/pr-bumper/internal/scope"
)

// InvalidScopeError signals that an unrecognized scope value reached the
// version bumper. The scope resolver only emits legal values, so this is a
// programmer or configuration error and is never retried.
type InvalidScopeError struct {
	Scope string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("Invalid scope [%s]", e.Scope)
}

// Bump returns the version produced by applying sc to current.
// Scope none returns current unchanged; callers are expected to skip the
// bump stage entirely in that case so the release state carries no version.
func Bump(current string, sc scope.Scope) (string, error) {
	parsed, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("failed to parse version %q: %w", current, err)
	}

	var next semver.Version
	switch sc {
	case scope.Major:
		next = parsed.IncMajor()
	case scope.Minor:
		next = parsed.IncMinor()
	case scope.Patch:
		next = parsed.IncPatch()
	case scope.None:
		return current, nil
	default:
		return "", &InvalidScopeError{Scope: string(sc)}
	}

	return next.String(), nil
}
