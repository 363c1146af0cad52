// Package config loads the tool configuration from .pr-bumper.yml and merges
// CI environment variables and command-line flags on top. The configuration
// is immutable for the duration of a run; each option gates exactly one
// pipeline stage's act/skip decision.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the conventional config file location, relative to the
// repository root.
const DefaultFile = ".pr-bumper.yml"

// Percentage is a coverage percentage that accepts both YAML numbers and
// numeric strings (e.g. 85.93 and "85.93").
type Percentage float64

// UnmarshalYAML implements yaml.Unmarshaler with numeric-string coercion.
func (p *Percentage) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if err := value.Decode(&f); err == nil {
		*p = Percentage(f)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("baselineCoverage must be a number or numeric string")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("baselineCoverage %q is not numeric: %w", s, err)
	}
	*p = Percentage(f)
	return nil
}

// Config holds every recognized option.
type Config struct {
	// PrependChangelog enables the changelog stage.
	PrependChangelog bool `yaml:"prependChangelog"`

	// ChangelogFile is the file the changelog stage prepends to.
	ChangelogFile string `yaml:"changelogFile"`

	// DependencySnapshotFile is the target path for the dependency lock
	// snapshot. Empty disables the snapshot stage.
	DependencySnapshotFile string `yaml:"dependencySnapshotFile"`

	// Dependencies configures the compliance-report stage.
	Dependencies Dependencies `yaml:"dependencies"`

	// BaselineCoverage is the coverage percentage the check flow compares
	// against. Unset disables the coverage check.
	BaselineCoverage *Percentage `yaml:"baselineCoverage"`

	// DefaultScope is used when a PR carries no recognizable scope signal.
	DefaultScope string `yaml:"defaultScope"`

	// ManifestFile is the JSON manifest holding the version field.
	ManifestFile string `yaml:"manifestFile"`

	// IsPr reports whether the current build is a pull-request build.
	IsPr bool `yaml:"isPr"`

	// PrNumber is the pull request under build, as reported by CI.
	PrNumber string `yaml:"prNumber"`

	// CI holds CI-platform build metadata.
	CI CI `yaml:"ci"`

	// Vcs identifies the hosted repository and credentials.
	Vcs Vcs `yaml:"vcs"`
}

// Dependencies configures the dependency compliance report stage.
type Dependencies struct {
	Output Output `yaml:"output"`

	// ReportCommand is the command invoked to generate the report.
	ReportCommand string `yaml:"reportCommand"`
}

// Output configures where the compliance report is written.
// An unset directory disables the stage.
type Output struct {
	Directory string `yaml:"directory"`
}

// CI holds build metadata read from the CI platform.
type CI struct {
	BuildNumber string `yaml:"buildNumber"`
}

// Vcs identifies the repository on the version-control service.
// The token is never read from the config file, only from the environment.
type Vcs struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"-"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		ChangelogFile: "CHANGELOG.md",
		DefaultScope:  "none",
		ManifestFile:  "package.json",
		Dependencies: Dependencies{
			ReportCommand: "npm run dependency-report",
		},
	}
}

// Load reads the YAML config at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return cfg, nil
}

// MergeEnv overlays CI environment variables onto cfg. Travis-style keys are
// recognized alongside generic GitHub credentials.
func MergeEnv(cfg *Config) *Config {
	if v := os.Getenv("TRAVIS_PULL_REQUEST"); v != "" {
		if v == "false" {
			cfg.IsPr = false
		} else {
			cfg.IsPr = true
			cfg.PrNumber = v
		}
	}
	if v := os.Getenv("TRAVIS_BUILD_NUMBER"); v != "" {
		cfg.CI.BuildNumber = v
	}
	if v := os.Getenv("TRAVIS_REPO_SLUG"); v != "" {
		if owner, repo, err := splitSlug(v); err == nil {
			cfg.Vcs.Owner = owner
			cfg.Vcs.Repo = repo
		}
	}
	if v := os.Getenv("PR_BUMPER_TOKEN"); v != "" {
		cfg.Vcs.Token = v
	} else if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Vcs.Token = v
	}
	return cfg
}

// MergeFlags overlays any explicitly set command-line flags onto cfg.
func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("changelog-file"); err == nil && v != "" {
		cfg.ChangelogFile = v
	}
	if v, err := flags.GetString("manifest-file"); err == nil && v != "" {
		cfg.ManifestFile = v
	}
	if flags.Changed("pr-number") {
		if v, err := flags.GetString("pr-number"); err == nil {
			cfg.PrNumber = v
			cfg.IsPr = v != ""
		}
	}
	return cfg
}

// Baseline returns the configured baseline coverage, or false when the
// coverage check is disabled.
func (c *Config) Baseline() (float64, bool) {
	if c.BaselineCoverage == nil {
		return 0, false
	}
	return float64(*c.BaselineCoverage), true
}

// PrNumberInt returns the PR number as an integer.
func (c *Config) PrNumberInt() (int, error) {
	n, err := strconv.Atoi(c.PrNumber)
	if err != nil {
		return 0, fmt.Errorf("invalid PR number %q: %w", c.PrNumber, err)
	}
	return n, nil
}

func splitSlug(slug string) (owner, repo string, err error) {
	for i := 0; i < len(slug); i++ {
		if slug[i] == '/' {
			if i == 0 || i == len(slug)-1 {
				break
			}
			return slug[:i], slug[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("cannot parse repo slug %q", slug)
}
