// Package vcs talks to the version-control service hosting the repository.
// It wraps the GitHub API for fetching pull requests and posting comments.
package vcs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v60/github"

	"github.com/heshamMassoud/pr-bumper/internal/scope"
)

// GitHub is a thin client over the GitHub REST API.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	log    *slog.Logger
}

// NewGitHub creates a client for owner/repo. An empty token produces an
// unauthenticated client, which is sufficient for public-repo reads.
func NewGitHub(token, owner, repo string, log *slog.Logger) *GitHub {
	if log == nil {
		log = slog.Default()
	}

	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &GitHub{client: client, owner: owner, repo: repo, log: log}
}

// GetPr fetches the pull request's metadata.
func (g *GitHub) GetPr(ctx context.Context, number int) (*scope.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR #%d for %s/%s: %w", number, g.owner, g.repo, err)
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, label := range pr.Labels {
		labels = append(labels, label.GetName())
	}

	return &scope.PullRequest{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		Labels:      labels,
	}, nil
}

// MaybePostComment posts a comment on the pull request. Posting is best
// effort: a failure is logged and never surfaced, so it cannot mask the
// result that prompted the comment.
func (g *GitHub) MaybePostComment(ctx context.Context, prNumber int, message string, isError bool) {
	body := message
	if isError {
		body = ":no_entry_sign: " + message
	}

	comment := &github.IssueComment{Body: github.String(body)}
	if _, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, prNumber, comment); err != nil {
		g.log.Warn("failed to post PR comment", "pr", prNumber, "error", err)
	}
}
