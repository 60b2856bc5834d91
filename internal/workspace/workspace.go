package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/logfields"
)

// Manager handles the build tree and the generated areas of the source tree.
// Hand-written sources are never touched; everything the manager creates is
// derived and safe to remove.
type Manager struct {
	cfg *config.Config
}

// NewManager creates a workspace manager for the given configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Prepare ensures the build tree, doctrees directory and generated source
// areas exist.
func (m *Manager) Prepare() error {
	dirs := append([]string{m.cfg.Build.Dir, m.cfg.Build.DoctreesDir}, m.GeneratedSourceDirs()...)
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	slog.Debug("Workspace prepared", logfields.BuildDir(m.cfg.Build.Dir), logfields.SourceDir(m.cfg.Source.Dir))
	return nil
}

// GeneratedSourceDirs lists the derived areas inside the source tree, in the
// order demos, api, generated.
func (m *Manager) GeneratedSourceDirs() []string {
	return []string{
		m.cfg.SourcePath(m.cfg.Source.DemoDir),
		m.cfg.SourcePath(m.cfg.Source.APIDir),
		m.cfg.SourcePath(m.cfg.Source.GeneratedDir),
	}
}

// GeneratedSourceFiles lists individual derived files inside the source tree,
// currently the targets of the configured markdown pages.
func (m *Manager) GeneratedSourceFiles() []string {
	files := make([]string, 0, len(m.cfg.Source.Pages))
	for _, page := range m.cfg.Source.Pages {
		files = append(files, m.cfg.SourcePath(page.Target))
	}
	return files
}

// OutputDir returns the output directory for a builder's rendered documents.
func (m *Manager) OutputDir(builder string) string {
	return m.cfg.BuildPath(builder)
}

// Clean removes the build tree, all generated source areas and the generated
// page files. Removing something that does not exist is not an error, so
// Clean is idempotent.
func (m *Manager) Clean() error {
	targets := append([]string{m.cfg.Build.Dir}, m.GeneratedSourceDirs()...)
	targets = append(targets, m.GeneratedSourceFiles()...)
	for _, target := range targets {
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to clean %s: %w", target, err)
		}
		slog.Debug("Removed generated artifacts", logfields.Path(target))
	}
	slog.Info("Cleaned build artifacts and generated sources", logfields.Count(len(targets)))
	return nil
}

// ResetGenerated clears and recreates one generated source area so stale pages
// from a previous run never survive a regeneration.
func (m *Manager) ResetGenerated(dir string) error {
	if !m.isGenerated(dir) {
		return fmt.Errorf("refusing to reset non-generated directory: %s", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to reset %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", dir, err)
	}
	return nil
}

func (m *Manager) isGenerated(dir string) bool {
	for _, g := range m.GeneratedSourceDirs() {
		if filepath.Clean(g) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}
