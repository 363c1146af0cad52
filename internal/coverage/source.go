package coverage

import (
	"encoding/json"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// DefaultSummaryPath is where istanbul-style coverage tooling writes its
// JSON summary.
const DefaultSummaryPath = "coverage/coverage-summary.json"

// SummarySource reads the current coverage from a coverage-summary.json
// report, using the total statement percentage.
type SummarySource struct {
	fs   billy.Filesystem
	path string
	log  *slog.Logger
}

// NewSummarySource creates a SummarySource reading from path, or from
// DefaultSummaryPath when path is empty.
func NewSummarySource(fs billy.Filesystem, path string, log *slog.Logger) *SummarySource {
	if path == "" {
		path = DefaultSummaryPath
	}
	if log == nil {
		log = slog.Default()
	}
	return &SummarySource{fs: fs, path: path, log: log}
}

type coverageSummary struct {
	Total struct {
		Statements struct {
			Pct float64 `json:"pct"`
		} `json:"statements"`
	} `json:"total"`
}

// CurrentCoverage returns the total statement coverage percentage, or
// Unavailable when the report is missing or unreadable.
func (s *SummarySource) CurrentCoverage() float64 {
	data, err := util.ReadFile(s.fs, s.path)
	if err != nil {
		s.log.Debug("coverage summary not found", "path", s.path, "error", err)
		return Unavailable
	}

	var summary coverageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		s.log.Warn("coverage summary is not valid JSON", "path", s.path, "error", err)
		return Unavailable
	}

	return summary.Total.Statements.Pct
}
