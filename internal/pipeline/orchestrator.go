package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/heshamMassoud/pr-bumper/internal/changelog"
	"github.com/heshamMassoud/pr-bumper/internal/config"
	"github.com/heshamMassoud/pr-bumper/internal/coverage"
	"github.com/heshamMassoud/pr-bumper/internal/manifest"
	"github.com/heshamMassoud/pr-bumper/internal/scope"
	"github.com/heshamMassoud/pr-bumper/internal/version"
)

const (
	// ToolTag prefixes every commit subject the tool writes, so a later
	// run can recognize its own commits and skip them.
	ToolTag = "[pr-bumper]"

	// CancelSelfCommit is the cancellation reason when the triggering
	// commit was authored by the tool itself.
	CancelSelfCommit = "Skipping bump on pr-bumper commit."

	subjectVersionBump   = ToolTag + " Automated version bump"
	subjectCoverageBump  = ToolTag + " Automated code coverage update"
	changelogHeadingMark = "# changelog"
)

// mergeCommitPattern extracts the PR number from a merge commit subject.
var mergeCommitPattern = regexp.MustCompile(`^Merge pull request #(\d+)`)

// squashCommitPattern extracts the PR number from a squash-merge subject
// such as "fix the thing (#42)".
var squashCommitPattern = regexp.MustCompile(`\(#(\d+)\)`)

// VCSClient fetches and comments on pull requests.
type VCSClient interface {
	GetPr(ctx context.Context, number int) (*scope.PullRequest, error)
	MaybePostComment(ctx context.Context, prNumber int, message string, isError bool)
}

// GitClient performs the git plumbing the pipeline needs.
type GitClient interface {
	SetupEnv() error
	LastCommitMessage(ctx context.Context) (string, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, subject, body string) (string, error)
	Tag(ctx context.Context, name, message string) error
	Push(ctx context.Context) error
}

// Snapshotter produces the dependency lock snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context, targetPath string) error
}

// Reporter generates the dependency compliance report.
type Reporter interface {
	Run(ctx context.Context, cwd, outputPath string) error
}

// Orchestrator runs the check flow for PR builds and the bump flow for
// merge builds. All collaborators are explicit dependencies supplied at
// construction; nothing is reached through ambient state.
type Orchestrator struct {
	cfg      *config.Config
	fs       billy.Filesystem
	vcs      VCSClient
	git      GitClient
	snapshot Snapshotter
	reporter Reporter
	source   coverage.Source
	gate     *coverage.Gate
	resolver *scope.Resolver
	log      *slog.Logger
	now      func() time.Time
}

// Deps bundles the Orchestrator's collaborators.
type Deps struct {
	Config      *config.Config
	FS          billy.Filesystem
	VCS         VCSClient
	Git         GitClient
	Snapshotter Snapshotter
	Reporter    Reporter
	Source      coverage.Source
	Resolver    *scope.Resolver
	Log         *slog.Logger

	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// New constructs an Orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		cfg:      deps.Config,
		fs:       deps.FS,
		vcs:      deps.VCS,
		git:      deps.Git,
		snapshot: deps.Snapshotter,
		reporter: deps.Reporter,
		source:   deps.Source,
		gate:     coverage.NewGate(deps.Source, commenterFor(deps.VCS), log),
		resolver: deps.Resolver,
		log:      log,
		now:      now,
	}
}

// commenterFor adapts the VCS client to the coverage gate's Commenter.
// A nil client disables commenting.
func commenterFor(client VCSClient) coverage.Commenter {
	if client == nil {
		return nil
	}
	return client
}

// Check runs the PR-build flow: resolve the bump scope for the open pull
// request, report it, and run the coverage check when a baseline is
// configured. On a non-PR build it logs and returns nil.
func (o *Orchestrator) Check(ctx context.Context) error {
	if !o.cfg.IsPr {
		o.log.Info("not a pull request build, skipping check")
		return nil
	}

	prNumber, err := o.cfg.PrNumberInt()
	if err != nil {
		return err
	}

	pr, err := o.vcs.GetPr(ctx, prNumber)
	if err != nil {
		return err
	}

	sc, err := o.resolver.Resolve(*pr)
	if err != nil {
		return err
	}

	o.log.Info("scope computed for pull request", "pr", prNumber, "scope", sc)
	o.vcs.MaybePostComment(ctx, prNumber,
		fmt.Sprintf("Merging this PR will trigger a `%s` bump.", sc), false)

	baseline, hasBaseline := o.cfg.Baseline()
	if !hasBaseline {
		o.log.Info("coverage check disabled, no baselineCoverage configured")
		return nil
	}
	return o.gate.Check(ctx, prNumber, baseline, true)
}

// Bump runs the merge-build flow. It returns a skipped Outcome on PR builds,
// a cancelled Outcome when the triggering commit was authored by the tool
// itself (checked before any stage executes, so no partial mutation can
// occur), and otherwise folds the release state through the stages in their
// fixed order: bump version, prepend changelog, dependency snapshot, update
// baseline coverage, commit, tag, compliance report, push.
func (o *Orchestrator) Bump(ctx context.Context) (*Outcome, error) {
	if o.cfg.IsPr {
		o.log.Info("not a merge build, skipping bump")
		return &Outcome{Skipped: true, Reason: "not a merge build"}, nil
	}

	lastMsg, err := o.git.LastCommitMessage(ctx)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(lastMsg, ToolTag) {
		o.log.Info("last commit was authored by pr-bumper, cancelling")
		return &Outcome{Cancelled: true, Reason: CancelSelfCommit}, nil
	}

	prNumber, err := prNumberFromCommit(lastMsg)
	if err != nil {
		return nil, err
	}

	pr, err := o.vcs.GetPr(ctx, prNumber)
	if err != nil {
		return nil, err
	}

	sc, err := o.resolver.Resolve(*pr)
	if err != nil {
		return nil, err
	}
	o.log.Info("scope resolved for merged pull request", "pr", prNumber, "scope", sc)

	mf, err := manifest.Load(o.fs, o.cfg.ManifestFile)
	if err != nil {
		return nil, err
	}

	state := &State{Scope: sc, Changelog: changelogText(pr)}
	if err := runStages(ctx, o.log, o.stages(mf), state); err != nil {
		return nil, err
	}

	return &Outcome{State: state}, nil
}

// stages builds the ordered stage list for one bump execution. Commit must
// follow every stage that can add to the modified-file set, tag must follow
// commit, and push must be last.
func (o *Orchestrator) stages(mf *manifest.Manifest) []Stage {
	return []Stage{
		{
			Name: "bump-version",
			ShouldRun: func(s *State) (bool, string) {
				if s.Scope == scope.None {
					return false, "scope is none, no version bump"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				current, err := mf.Version()
				if err != nil {
					return err
				}
				next, err := version.Bump(current, s.Scope)
				if err != nil {
					return err
				}
				s.Version = next
				mf.SetVersion(next)
				if err := mf.Save(); err != nil {
					return err
				}
				s.AddModified(mf.Path())
				o.log.Info("version bumped", "from", current, "to", next)
				return nil
			},
		},
		{
			Name: "prepend-changelog",
			ShouldRun: func(s *State) (bool, string) {
				if !o.cfg.PrependChangelog {
					return false, "changelog prepending disabled in configuration"
				}
				if s.Scope == scope.None {
					return false, "scope is none, no changelog entry"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				entry := changelog.Entry(s.Version, s.Changelog, o.now())
				if err := changelog.Prepend(o.fs, o.cfg.ChangelogFile, entry); err != nil {
					return err
				}
				s.AddModified(o.cfg.ChangelogFile)
				return nil
			},
		},
		{
			Name: "dependency-snapshot",
			ShouldRun: func(s *State) (bool, string) {
				if o.cfg.DependencySnapshotFile == "" {
					return false, "no dependency snapshot file configured"
				}
				if s.Scope == scope.None {
					return false, "scope is none, no dependency snapshot"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				if err := o.snapshot.Snapshot(ctx, o.cfg.DependencySnapshotFile); err != nil {
					return err
				}
				s.AddModified(o.cfg.DependencySnapshotFile)
				return nil
			},
		},
		{
			Name: "update-baseline-coverage",
			ShouldRun: func(s *State) (bool, string) {
				if !mf.HasCoverageMetadata() {
					return false, "manifest has no coverage metadata section"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				current := o.source.CurrentCoverage()
				if current == coverage.Unavailable {
					return coverage.ErrNoCurrentCoverage
				}
				mf.SetCoverage(current)
				if err := mf.Save(); err != nil {
					return err
				}
				s.AddModified(mf.Path())
				o.log.Info("baseline coverage updated", "coverage", current)
				return nil
			},
		},
		{
			Name: "commit-changes",
			ShouldRun: func(s *State) (bool, string) {
				if len(s.ModifiedFiles) == 0 {
					return false, "no files modified, nothing to commit"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				if err := o.git.SetupEnv(); err != nil {
					return err
				}
				if err := o.git.Add(ctx, s.ModifiedFiles...); err != nil {
					return err
				}

				subject := subjectVersionBump
				if s.Scope == scope.None {
					subject = subjectCoverageBump
				}
				body := "From CI build " + o.cfg.CI.BuildNumber
				_, err := o.git.Commit(ctx, subject, body)
				return err
			},
		},
		{
			Name: "create-tag",
			ShouldRun: func(s *State) (bool, string) {
				if s.Scope == scope.None {
					return false, "scope is none, no tag"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				name := "v" + s.Version
				message := "Generated tag from CI build " + o.cfg.CI.BuildNumber
				return o.git.Tag(ctx, name, message)
			},
		},
		{
			Name: "compliance-report",
			ShouldRun: func(s *State) (bool, string) {
				if o.cfg.Dependencies.Output.Directory == "" {
					return false, "no compliance report output directory configured"
				}
				if s.Scope == scope.None {
					return false, "scope is none, no compliance report"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				dir := o.cfg.Dependencies.Output.Directory
				if err := o.reporter.Run(ctx, ".", dir); err != nil {
					return err
				}
				s.AddModified(dir)
				return nil
			},
		},
		{
			Name: "push-changes",
			ShouldRun: func(s *State) (bool, string) {
				if len(s.ModifiedFiles) == 0 {
					return false, "no files modified, nothing to push"
				}
				return true, ""
			},
			Run: func(ctx context.Context, s *State) error {
				return o.git.Push(ctx)
			},
		},
	}
}

// prNumberFromCommit extracts the merged PR number from the last commit
// message, covering both merge commits and squash merges.
func prNumberFromCommit(message string) (int, error) {
	if m := mergeCommitPattern.FindStringSubmatch(message); m != nil {
		return strconv.Atoi(m[1])
	}

	subject, _, _ := strings.Cut(message, "\n")
	matches := squashCommitPattern.FindAllStringSubmatch(subject, -1)
	if len(matches) > 0 {
		return strconv.Atoi(matches[len(matches)-1][1])
	}

	return 0, fmt.Errorf("cannot determine merged pull request from commit message %q", subject)
}

// changelogText extracts the release notes from the PR description: the
// content following a "# CHANGELOG" heading, or the PR title when the
// description carries no such section.
func changelogText(pr *scope.PullRequest) string {
	lines := strings.Split(pr.Description, "\n")
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), changelogHeadingMark) {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return "- " + pr.Title
}
