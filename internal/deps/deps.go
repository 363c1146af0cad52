// Package deps implements the dependency-related collaborators: the lock
// snapshot (clean install then lock, renamed to the configured target) and
// the compliance report generator invocation.
package deps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/heshamMassoud/pr-bumper/internal/executor"
)

// lockArtifact is the file the lock operation produces before renaming.
const lockArtifact = "npm-shrinkwrap.json"

// Snapshotter produces a dependency lock snapshot at a configured path.
type Snapshotter struct {
	fs     billy.Filesystem
	runner executor.Runner
	log    *slog.Logger
}

// NewSnapshotter creates a Snapshotter operating in the repository root.
func NewSnapshotter(fs billy.Filesystem, runner executor.Runner, log *slog.Logger) *Snapshotter {
	if log == nil {
		log = slog.Default()
	}
	return &Snapshotter{fs: fs, runner: runner, log: log}
}

// Snapshot prunes extraneous packages, generates a lock file for the
// installed dependency tree, and renames the artifact to targetPath.
func (s *Snapshotter) Snapshot(ctx context.Context, targetPath string) error {
	if _, err := s.runner.Run(ctx, "npm", []string{"prune"}); err != nil {
		return fmt.Errorf("dependency prune failed: %w", err)
	}

	if _, err := s.runner.Run(ctx, "npm", []string{"shrinkwrap", "--dev"}); err != nil {
		return fmt.Errorf("dependency lock failed: %w", err)
	}

	if err := s.fs.Rename(lockArtifact, targetPath); err != nil {
		return fmt.Errorf("failed to move %s to %q: %w", lockArtifact, targetPath, err)
	}

	s.log.Info("dependency snapshot written", "path", targetPath)
	return nil
}

// Reporter invokes the external dependency-compliance report generator.
type Reporter struct {
	runner  executor.Runner
	command string
	log     *slog.Logger
}

// NewReporter creates a Reporter that runs the configured command with the
// resolved output path appended.
func NewReporter(runner executor.Runner, command string, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{runner: runner, command: command, log: log}
}

// Run generates the compliance report into outputPath, executing in cwd.
func (r *Reporter) Run(ctx context.Context, cwd, outputPath string) error {
	fields := strings.Fields(r.command)
	if len(fields) == 0 {
		return fmt.Errorf("no compliance report command configured")
	}

	args := append(fields[1:], outputPath)
	if _, err := r.runner.Run(ctx, fields[0], args, executor.WithWorkingDir(cwd)); err != nil {
		return fmt.Errorf("compliance report generation failed: %w", err)
	}

	r.log.Info("compliance report generated", "path", outputPath)
	return nil
}
