package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heshamMassoud/pr-bumper/internal/scope"
)

func TestAddModifiedDedups(t *testing.T) {
	s := &State{}
	s.AddModified("package.json")
	s.AddModified("CHANGELOG.md")
	s.AddModified("package.json")

	assert.Equal(t, []string{"package.json", "CHANGELOG.md"}, s.ModifiedFiles)
}

func TestPrNumberFromCommit(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    int
		wantErr bool
	}{
		{
			name:    "merge commit",
			message: "Merge pull request #42 from acme/fix-the-thing\n\nfix the thing",
			want:    42,
		},
		{
			name:    "squash merge",
			message: "fix the thing (#42)\n\n* fix it\n* test it",
			want:    42,
		},
		{
			name:    "squash merge with parenthetical in title",
			message: "fix the thing (again) (#42)",
			want:    42,
		},
		{
			name:    "issue reference in body is ignored",
			message: "fix the thing (#42)\n\nCloses (#7)",
			want:    42,
		},
		{
			name:    "direct push",
			message: "hand-crafted commit",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prNumberFromCommit(tt.message)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangelogText(t *testing.T) {
	tests := []struct {
		name string
		pr   scope.PullRequest
		want string
	}{
		{
			name: "changelog section",
			pr: scope.PullRequest{
				Title:       "fix the thing",
				Description: "Details.\n# CHANGELOG\n- fixed the thing\n- also docs",
			},
			want: "- fixed the thing\n- also docs",
		},
		{
			name: "heading match is case-insensitive",
			pr: scope.PullRequest{
				Title:       "fix the thing",
				Description: "# Changelog\n- fixed",
			},
			want: "- fixed",
		},
		{
			name: "no section falls back to title",
			pr: scope.PullRequest{
				Title:       "fix the thing",
				Description: "Just details, no release notes.",
			},
			want: "- fix the thing",
		},
		{
			name: "empty description falls back to title",
			pr:   scope.PullRequest{Title: "fix the thing"},
			want: "- fix the thing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, changelogText(&tt.pr))
		})
	}
}
