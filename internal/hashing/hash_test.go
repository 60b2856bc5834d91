package hashing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceSetHashDeterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.rst"), []byte("Index\n=====\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "demos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demos", "demo.rst"), []byte("Demo\n"), 0o644))

	h1, err := SourceSetHash(dir)
	require.NoError(t, err)
	h2, err := SourceSetHash(dir)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestSourceSetHashChangesOnEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.rst")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	before, err := SourceSetHash(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	after, err := SourceSetHash(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSourceSetHashChangesOnRename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rst"), []byte("x"), 0o644))
	before, err := SourceSetHash(dir)
	require.NoError(t, err)

	require.NoError(t, os.Rename(filepath.Join(dir, "a.rst"), filepath.Join(dir, "b.rst")))
	after, err := SourceSetHash(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestSourceSetHashEmptyTree(t *testing.T) {
	h, err := SourceSetHash(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, h, 64)
}

func TestSourceSetHashSkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rst"), []byte("x"), 0o644))
	before, err := SourceSetHash(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache", "junk"), []byte("y"), 0o644))
	after, err := SourceSetHash(dir)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHashStringsBoundaries(t *testing.T) {
	// Separator prevents ("ab","c") colliding with ("a","bc").
	assert.NotEqual(t, HashStrings("ab", "c"), HashStrings("a", "bc"))
	assert.Equal(t, HashStrings("a", "b"), HashStrings("a", "b"))
}
