// Package manifest reads and writes the project manifest file (package.json
// layout): a JSON object with a "version" field and an optional "pr-bumper"
// object whose numeric "coverage" field stores the baseline coverage.
// Unknown fields survive a load/save round trip untouched.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ErrNoVersion is returned when the manifest lacks a version field.
var ErrNoVersion = errors.New("manifest has no version field")

// metadataKey is the manifest object holding tool-owned metadata.
const metadataKey = "pr-bumper"

// metadata is the tool-owned section of the manifest.
type metadata struct {
	Coverage float64 `json:"coverage"`
}

// Manifest is an in-memory copy of the manifest file. Mutations are staged
// on the Manifest and persisted with Save.
type Manifest struct {
	fs   billy.Filesystem
	path string
	raw  map[string]json.RawMessage
}

// Load reads and parses the manifest at path.
func Load(fs billy.Filesystem, path string) (*Manifest, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %q: %w", path, err)
	}

	return &Manifest{fs: fs, path: path, raw: raw}, nil
}

// Path returns the manifest's file path.
func (m *Manifest) Path() string {
	return m.path
}

// Version returns the manifest's semantic version string.
func (m *Manifest) Version() (string, error) {
	rawVersion, ok := m.raw["version"]
	if !ok {
		return "", ErrNoVersion
	}

	var version string
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return "", fmt.Errorf("manifest version field is not a string: %w", err)
	}
	return version, nil
}

// SetVersion stages a new version value.
func (m *Manifest) SetVersion(version string) {
	encoded, _ := json.Marshal(version)
	m.raw["version"] = encoded
}

// HasCoverageMetadata reports whether the manifest carries a pr-bumper
// metadata section. The baseline-coverage stage only acts when one exists.
func (m *Manifest) HasCoverageMetadata() bool {
	_, ok := m.raw[metadataKey]
	return ok
}

// Coverage returns the recorded baseline coverage percentage.
// The second return value is false when no metadata section exists.
func (m *Manifest) Coverage() (float64, bool) {
	rawMeta, ok := m.raw[metadataKey]
	if !ok {
		return 0, false
	}

	var meta metadata
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return 0, false
	}
	return meta.Coverage, true
}

// SetCoverage stages a new baseline coverage value, preserving any other
// fields in the metadata section.
func (m *Manifest) SetCoverage(pct float64) {
	section := map[string]json.RawMessage{}
	if rawMeta, ok := m.raw[metadataKey]; ok {
		_ = json.Unmarshal(rawMeta, &section)
	}

	encoded, _ := json.Marshal(pct)
	section["coverage"] = encoded

	rawSection, _ := json.Marshal(section)
	m.raw[metadataKey] = rawSection
}

// Save writes the manifest back to disk with two-space indentation and a
// trailing newline.
func (m *Manifest) Save() error {
	data, err := json.MarshalIndent(m.raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append(data, '\n')

	if err := util.WriteFile(m.fs, m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %q: %w", m.path, err)
	}
	return nil
}
