// Package manifest records what went into and came out of a documentation
// build, as a JSON document written next to the build output.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BuildManifest captures one build end to end.
type BuildManifest struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Inputs    Inputs    `json:"inputs"`
	Outputs   Outputs   `json:"outputs"`
	Status    string    `json:"status"` // success | skipped | failed
	Duration  int64     `json:"duration_ms"`
}

// Inputs identifies everything the build consumed.
type Inputs struct {
	SourceHash    string `json:"source_hash"`
	SphinxVersion string `json:"sphinx_version,omitempty"`
	GitRevision   string `json:"git_revision,omitempty"`
	Release       string `json:"release,omitempty"`
}

// Outputs identifies what the build produced.
type Outputs struct {
	Builder   string `json:"builder"`
	OutputDir string `json:"output_dir"`
	Demos     int    `json:"demos,omitempty"`
	APIStubs  int    `json:"api_stubs,omitempty"`
	Pages     int    `json:"generated_pages,omitempty"`
}

// ToJSON serializes the manifest.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Write stores the manifest in dir as manifest.json.
func (m *BuildManifest) Write(dir string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads a manifest previously written to dir.
func Read(dir string) (*BuildManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}
