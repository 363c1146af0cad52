package scope

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	conventionalcommits "github.com/leodido/go-conventionalcommits"
	ccparser "github.com/leodido/go-conventionalcommits/parser"
)

// markerPattern matches inline scope markers such as "#minor#" in a PR description.
var markerPattern = regexp.MustCompile(`#(major|minor|patch|none)#`)

// checkboxPattern matches GFM checkbox template lines such as "- [x] #patch#".
var checkboxPattern = regexp.MustCompile(`(?m)^\s*-\s*\[([ xX])\]\s*#(major|minor|patch|none)#`)

// Resolver derives a bump Scope from pull-request metadata.
// It only ever emits legal scope values; the version bumper performs a
// defensive check for anything else.
type Resolver struct {
	// Default is returned when no label, marker, or title convention
	// identifies a scope. Supplied by configuration.
	Default Scope

	log *slog.Logger
}

// NewResolver creates a Resolver with the given default scope.
func NewResolver(def Scope, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{Default: def, log: log}
}

// Resolve returns the bump scope for the pull request.
// Resolution order: recognized label, description marker (checkbox template
// first), conventional-commit title, configured default. A PR carrying more
// than one recognized label or checked marker is ambiguous and errors.
func (r *Resolver) Resolve(pr PullRequest) (Scope, error) {
	if s, found, err := fromLabels(pr.Labels); err != nil {
		return "", err
	} else if found {
		r.log.Debug("scope resolved from label", "pr", pr.Number, "scope", s)
		return s, nil
	}

	if s, found, err := fromDescription(pr.Description); err != nil {
		return "", err
	} else if found {
		r.log.Debug("scope resolved from description marker", "pr", pr.Number, "scope", s)
		return s, nil
	}

	if s, found := fromTitle(pr.Title); found {
		r.log.Debug("scope resolved from conventional commit title", "pr", pr.Number, "scope", s)
		return s, nil
	}

	r.log.Debug("scope falling back to default", "pr", pr.Number, "scope", r.Default)
	return r.Default, nil
}

// fromLabels inspects PR labels for a recognized scope. At most one
// recognized label is allowed per PR.
func fromLabels(labels []string) (Scope, bool, error) {
	var matches []Scope
	for _, label := range labels {
		if s, err := Parse(label); err == nil {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0], true, nil
	default:
		return "", false, fmt.Errorf("ambiguous scope: %d scope labels found on pull request", len(matches))
	}
}

// fromDescription inspects the PR body for scope markers. When a GFM
// checkbox template is present, exactly one checked entry decides the
// scope. Plain inline markers are accepted otherwise.
func fromDescription(description string) (Scope, bool, error) {
	boxes := checkboxPattern.FindAllStringSubmatch(description, -1)
	if len(boxes) > 0 {
		var checked []Scope
		for _, m := range boxes {
			if strings.TrimSpace(m[1]) != "" {
				checked = append(checked, Scope(m[2]))
			}
		}
		switch len(checked) {
		case 0:
			return "", false, nil
		case 1:
			return checked[0], true, nil
		default:
			return "", false, fmt.Errorf("ambiguous scope: %d scope checkboxes checked in description", len(checked))
		}
	}

	markers := markerPattern.FindAllStringSubmatch(description, -1)
	distinct := map[Scope]struct{}{}
	for _, m := range markers {
		distinct[Scope(m[1])] = struct{}{}
	}
	switch len(distinct) {
	case 0:
		return "", false, nil
	case 1:
		return Scope(markers[0][1]), true, nil
	default:
		return "", false, fmt.Errorf("ambiguous scope: %d distinct scope markers in description", len(distinct))
	}
}

// fromTitle parses the PR title as a conventional commit.
// Breaking changes map to major, feat to minor, fix to patch.
func fromTitle(title string) (Scope, bool) {
	machine := ccparser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))
	msg, err := machine.Parse([]byte(title))
	if err != nil {
		return "", false
	}

	cc, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok {
		return "", false
	}

	switch {
	case cc.IsBreakingChange():
		return Major, true
	case cc.Type == "feat":
		return Minor, true
	case cc.Type == "fix":
		return Patch, true
	default:
		return "", false
	}
}
