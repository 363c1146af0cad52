// Command pr-bumper automates semantic-version release mechanics from CI
// builds: "check" reports the bump scope a pull request warrants, "bump"
// performs the release pipeline on merge builds.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/heshamMassoud/pr-bumper/internal/config"
	"github.com/heshamMassoud/pr-bumper/internal/coverage"
	"github.com/heshamMassoud/pr-bumper/internal/deps"
	"github.com/heshamMassoud/pr-bumper/internal/executor"
	"github.com/heshamMassoud/pr-bumper/internal/gitops"
	"github.com/heshamMassoud/pr-bumper/internal/pipeline"
	"github.com/heshamMassoud/pr-bumper/internal/scope"
	"github.com/heshamMassoud/pr-bumper/internal/vcs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pr-bumper",
		Short:         "Automated semantic-version bumps driven by CI builds",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("config", config.DefaultFile, "Path to config file")
	rootCmd.PersistentFlags().String("repo-dir", ".", "Repository root directory")
	rootCmd.PersistentFlags().String("changelog-file", "", "Override the changelog file path")
	rootCmd.PersistentFlags().String("manifest-file", "", "Override the manifest file path")
	rootCmd.PersistentFlags().String("pr-number", "", "Override the pull request number")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newCheckCmd(), newBumpCmd())
	return rootCmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report the version-bump scope for the pull request under build",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(cmd)
			if err != nil {
				return err
			}
			return orch.Check(cmd.Context())
		},
	}
}

func newBumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bump",
		Short: "Run the release pipeline for a merge build",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := buildOrchestrator(cmd)
			if err != nil {
				return err
			}

			outcome, err := orch.Bump(cmd.Context())
			if err != nil {
				return err
			}

			// A cancelled or skipped run is a benign no-op, exit 0.
			if !outcome.Completed() {
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Reason)
			}
			return nil
		},
	}
}

func buildOrchestrator(cmd *cobra.Command) (*pipeline.Orchestrator, error) {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	log := newLogger(verbose)

	cfgPath, _ := flags.GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn("could not load config file, using defaults", "path", cfgPath, "error", err)
		cfg = config.Default()
	}
	cfg = config.MergeEnv(cfg)
	cfg = config.MergeFlags(cfg, flags)

	repoDir, _ := flags.GetString("repo-dir")
	fs := osfs.New(repoDir)

	repo, err := gitops.Open(fs, log)
	if err != nil {
		return nil, err
	}
	repo.SetAuth(cfg.Vcs.Token)

	defaultScope, err := scope.Parse(cfg.DefaultScope)
	if err != nil {
		return nil, fmt.Errorf("invalid defaultScope in configuration: %w", err)
	}

	runner := executor.NewLocal()

	return pipeline.New(pipeline.Deps{
		Config:      cfg,
		FS:          fs,
		VCS:         vcs.NewGitHub(cfg.Vcs.Token, cfg.Vcs.Owner, cfg.Vcs.Repo, log),
		Git:         repo,
		Snapshotter: deps.NewSnapshotter(fs, runner, log),
		Reporter:    deps.NewReporter(runner, cfg.Dependencies.ReportCommand, log),
		Source:      coverage.NewSummarySource(fs, "", log),
		Resolver:    scope.NewResolver(defaultScope, log),
		Log:         log,
	}), nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
