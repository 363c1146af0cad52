// Package scope derives the semantic-version bump class for a change from
// pull-request metadata. A scope is resolved from labels first, then from
// markers embedded in the PR description, then from a conventional-commit
// style PR title, and finally from the configured default.
package scope

import (
	"fmt"
	"strings"
)

// Scope is the semantic-version bump class for a change.
type Scope string

const (
	// Major bumps the major version component (x+1, 0, 0).
	Major Scope = "major"

	// Minor bumps the minor version component (x, y+1, 0).
	Minor Scope = "minor"

	// Patch bumps the patch version component (x, y, z+1).
	Patch Scope = "patch"

	// None indicates the change does not warrant a release.
	None Scope = "none"
)

// String returns the scope's lowercase token.
func (s Scope) String() string {
	return string(s)
}

// Valid reports whether s is one of the four legal scope values.
func (s Scope) Valid() bool {
	switch s {
	case Major, Minor, Patch, None:
		return true
	default:
		return false
	}
}

// Parse converts a token into a Scope. Leading "semver-" prefixes are
// accepted so labels such as "semver-major" resolve correctly.
func Parse(token string) (Scope, error) {
	normalized := strings.ToLower(strings.TrimSpace(token))
	normalized = strings.TrimPrefix(normalized, "semver-")

	s := Scope(normalized)
	if !s.Valid() {
		return "", fmt.Errorf("unrecognized scope token %q", token)
	}
	return s, nil
}

// PullRequest carries the metadata a Resolver inspects.
// It is populated by the VCS client from the hosting service's API.
type PullRequest struct {
	Number      int
	Title       string
	Description string
	Labels      []string
}
