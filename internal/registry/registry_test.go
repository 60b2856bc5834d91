package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `
title: Model Options
description: Tunable parameters of the 2D solver.
sections:
  - name: Time stepping
    entries:
      - name: timestep
        type: float
        default: "10.0"
        units: s
        description: Simulation time step.
      - name: use_automatic_timestep
        type: bool
        default: "true"
        description: |
          Derive the time step from the mesh CFL condition.
          Overrides any explicit timestep value.
  - name: Output
    description: Controls exported diagnostics.
    entries:
      - name: fields_to_export
        type: list of str
        description: Field names written at each export.
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesSectionsAndEntries(t *testing.T) {
	reg, err := Load(writeRegistry(t, sampleRegistry))
	require.NoError(t, err)

	assert.Equal(t, "Model Options", reg.Title)
	require.Len(t, reg.Sections, 2)
	assert.Equal(t, "Time stepping", reg.Sections[0].Name)
	require.Len(t, reg.Sections[0].Entries, 2)
	assert.Equal(t, "timestep", reg.Sections[0].Entries[0].Name)
	assert.Equal(t, "s", reg.Sections[0].Entries[0].Units)
}

func TestLoadRejectsMissingTitle(t *testing.T) {
	_, err := Load(writeRegistry(t, "sections: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no title")
}

func TestLoadRejectsAnonymousEntry(t *testing.T) {
	_, err := Load(writeRegistry(t, `
title: Broken
sections:
  - name: S
    entries:
      - description: no name here
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a name")
}

func TestGenerateRendersPage(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "generated", "model_options.rst")
	require.NoError(t, Generate(writeRegistry(t, sampleRegistry), outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "Model Options\n=============\n")
	assert.Contains(t, content, "Time stepping\n-------------\n")
	assert.Contains(t, content, ".. option:: timestep\n")
	assert.Contains(t, content, "   Simulation time step.")
	assert.Contains(t, content, "   :type: float")
	assert.Contains(t, content, "   :default: 10.0")
	assert.Contains(t, content, "   :units: s")
	// Multi-line descriptions stay indented under the directive.
	assert.Contains(t, content, "   Derive the time step from the mesh CFL condition.\n   Overrides any explicit timestep value.")
	assert.Contains(t, content, ".. option:: fields_to_export")
}

func TestRenderDeterministic(t *testing.T) {
	reg, err := Load(writeRegistry(t, sampleRegistry))
	require.NoError(t, err)

	p1 := filepath.Join(t.TempDir(), "a.rst")
	p2 := filepath.Join(t.TempDir(), "b.rst")
	require.NoError(t, Render(reg, p1))
	require.NoError(t, Render(reg, p2))

	a, _ := os.ReadFile(p1)
	b, _ := os.ReadFile(p2)
	assert.Equal(t, string(a), string(b))
}
