package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "docforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
project:
  name: Thetis
source:
  dir: src
build:
  dir: out
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Thetis", cfg.Project.Name)
	assert.Equal(t, "src", cfg.Source.Dir)
	assert.Equal(t, "demos", cfg.Source.DemoDir)
	assert.Equal(t, "api", cfg.Source.APIDir)
	assert.Equal(t, "generated", cfg.Source.GeneratedDir)
	assert.Equal(t, filepath.Join("out", "doctrees"), cfg.Build.DoctreesDir)
	assert.Equal(t, "sphinx-build", cfg.Build.Binary)
	assert.Equal(t, filepath.Join("out", "docforge-state.db"), cfg.Build.StatePath)
	assert.Equal(t, 8000, cfg.Preview.Port)
	assert.Equal(t, "docforge.build.completed", cfg.Events.Subject)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCFORGE_TEST_PKG", "/opt/pkg")
	path := writeConfig(t, `
project:
  name: Env
  package_dir: ${DOCFORGE_TEST_PKG}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/pkg", cfg.Project.PackageDir)
}

func TestValidateRejectsSharedDirs(t *testing.T) {
	path := writeConfig(t, `
source:
  dir: docs
build:
  dir: docs
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidateRejectsBadInterval(t *testing.T) {
	path := writeConfig(t, `
daemon:
  interval: often
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon.interval")
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docforge.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Source.Registries)
}

func TestSourceAndBuildPaths(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.Equal(t, filepath.Join("source", "demos", "index.rst"), cfg.SourcePath("demos", "index.rst"))
	assert.Equal(t, filepath.Join("build", "html"), cfg.BuildPath("html"))
}
