package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heshamMassoud/pr-bumper/internal/scope"
)

func TestBump(t *testing.T) {
	tests := []struct {
		name    string
		current string
		scope   scope.Scope
		want    string
	}{
		{name: "major resets minor and patch", current: "1.2.3", scope: scope.Major, want: "2.0.0"},
		{name: "minor resets patch", current: "1.2.3", scope: scope.Minor, want: "1.3.0"},
		{name: "patch increments", current: "1.2.3", scope: scope.Patch, want: "1.2.4"},
		{name: "none is a no-op", current: "1.2.3", scope: scope.None, want: "1.2.3"},
		{name: "patch from zero", current: "0.0.0", scope: scope.Patch, want: "0.0.1"},
		{name: "major from pre-1.0", current: "0.9.9", scope: scope.Major, want: "1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Bump(tt.current, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBumpInvalidScope(t *testing.T) {
	_, err := Bump("1.2.3", scope.Scope("foo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid scope [foo]")

	var invalidErr *InvalidScopeError
	require.True(t, errors.As(err, &invalidErr))
	assert.Equal(t, "foo", invalidErr.Scope)
}

func TestBumpInvalidVersion(t *testing.T) {
	_, err := Bump("not-a-version", scope.Patch)
	assert.Error(t, err)
}
