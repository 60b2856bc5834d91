package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastalsim/docforge/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Source: config.SourceConfig{
			Dir:          filepath.Join(root, "source"),
			DemoDir:      "demos",
			APIDir:       "api",
			GeneratedDir: "generated",
		},
		Build: config.BuildConfig{
			Dir:         filepath.Join(root, "build"),
			DoctreesDir: filepath.Join(root, "build", "doctrees"),
		},
	}
	return cfg
}

func TestPrepareCreatesTree(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)
	require.NoError(t, m.Prepare())

	for _, dir := range append([]string{cfg.Build.Dir, cfg.Build.DoctreesDir}, m.GeneratedSourceDirs()...) {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestCleanRemovesOnlyDerived(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)
	require.NoError(t, m.Prepare())

	// A hand-written source file must survive clean.
	handWritten := filepath.Join(cfg.Source.Dir, "index.rst")
	require.NoError(t, os.WriteFile(handWritten, []byte("Index\n=====\n"), 0o644))
	generated := filepath.Join(m.GeneratedSourceDirs()[0], "demo_channel.rst")
	require.NoError(t, os.WriteFile(generated, []byte("derived"), 0o644))

	require.NoError(t, m.Clean())

	_, err := os.Stat(handWritten)
	assert.NoError(t, err)
	_, err = os.Stat(generated)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.Build.Dir)
	assert.True(t, os.IsNotExist(err))

	// Idempotent: cleaning an already-clean tree succeeds.
	require.NoError(t, m.Clean())
}

func TestCleanRemovesGeneratedPages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Pages = []config.MarkdownPage{
		{Source: "README.md", Target: "readme.rst"},
		{Source: "CONTRIBUTING.md", Target: "contributing.rst"},
	}
	m := NewManager(cfg)
	require.NoError(t, m.Prepare())

	handWritten := filepath.Join(cfg.Source.Dir, "index.rst")
	require.NoError(t, os.WriteFile(handWritten, []byte("Index\n=====\n"), 0o644))
	for _, target := range m.GeneratedSourceFiles() {
		require.NoError(t, os.WriteFile(target, []byte("derived"), 0o644))
	}

	require.NoError(t, m.Clean())

	for _, target := range m.GeneratedSourceFiles() {
		_, err := os.Stat(target)
		assert.True(t, os.IsNotExist(err), target)
	}
	_, err := os.Stat(handWritten)
	assert.NoError(t, err)
}

func TestResetGeneratedGuardsTargets(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)
	require.NoError(t, m.Prepare())

	apiDir := m.GeneratedSourceDirs()[1]
	stale := filepath.Join(apiDir, "old_module.rst")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	require.NoError(t, m.ResetGenerated(apiDir))
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(apiDir)
	assert.NoError(t, err)

	require.Error(t, m.ResetGenerated(cfg.Source.Dir))
}
