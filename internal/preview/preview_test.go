package preview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastalsim/docforge/internal/config"
)

func previewConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Source.Dir = filepath.Join(root, "source")
	cfg.Source.DemoDir = "demos"
	cfg.Source.APIDir = "api"
	cfg.Source.GeneratedDir = "generated"
	cfg.Source.Pages = []config.MarkdownPage{{Source: "README.md", Target: "readme.rst"}}
	cfg.Build.Dir = filepath.Join(root, "build")
	cfg.Preview.DebounceMS = 20
	require.NoError(t, os.MkdirAll(cfg.Source.Dir, 0o755))
	return cfg
}

func TestShouldIgnoreName(t *testing.T) {
	require.True(t, shouldIgnoreName("/tmp/.hidden.rst"))
	require.True(t, shouldIgnoreName("/tmp/#index.rst#"))
	require.True(t, shouldIgnoreName("/tmp/index.rst.swp"))
	require.True(t, shouldIgnoreName("/tmp/index.rst~"))
	require.False(t, shouldIgnoreName("/tmp/index.rst"))
}

func TestShouldIgnoreGeneratedAreas(t *testing.T) {
	cfg := previewConfig(t)
	s := New(cfg, filepath.Join(cfg.Build.Dir, "html"), nil)

	assert.True(t, s.shouldIgnore(cfg.SourcePath("demos", "channel.rst")))
	assert.True(t, s.shouldIgnore(cfg.SourcePath("api", "thetis.rst")))
	assert.True(t, s.shouldIgnore(cfg.SourcePath("generated", "options.rst")))
	assert.True(t, s.shouldIgnore(cfg.SourcePath("readme.rst")))
	assert.False(t, s.shouldIgnore(cfg.SourcePath("index.rst")))
	assert.False(t, s.shouldIgnore(cfg.SourcePath("tutorial", "mesh.rst")))
}

func TestHandlerBeforeFirstGoodBuild(t *testing.T) {
	cfg := previewConfig(t)
	s := New(cfg, filepath.Join(cfg.Build.Dir, "html"), nil)
	s.status.setError(errors.New("sphinx-build exited with status 2"))

	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "sphinx-build exited with status 2")
}

func TestHandlerServesBuiltTree(t *testing.T) {
	cfg := previewConfig(t)
	htmlDir := filepath.Join(cfg.Build.Dir, "html")
	require.NoError(t, os.MkdirAll(htmlDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(htmlDir, "index.html"), []byte("<h1>Thetis</h1>"), 0o644))

	s := New(cfg, htmlDir, nil)
	s.status.setSuccess()
	// A later failed rebuild keeps serving the last good tree.
	s.status.setError(errors.New("rebuild failed"))

	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index.html", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thetis")
}

func TestStatusEndpoint(t *testing.T) {
	cfg := previewConfig(t)
	s := New(cfg, filepath.Join(cfg.Build.Dir, "html"), nil)
	s.status.setError(errors.New("conf.py not found"))

	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_docforge/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status    string `json:"status"`
		Error     string `json:"error"`
		GoodBuild bool   `json:"good_build"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "conf.py not found", resp.Error)
	assert.False(t, resp.GoodBuild)
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	cfg := previewConfig(t)
	s := New(cfg, "", nil)

	rebuildReq, trigger := s.debouncer()
	for i := 0; i < 10; i++ {
		trigger()
	}

	select {
	case <-rebuildReq:
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	select {
	case <-rebuildReq:
		t.Fatal("burst produced more than one rebuild request")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRebuildWorkerRunsBuilds(t *testing.T) {
	cfg := previewConfig(t)
	var builds atomic.Int64
	s := New(cfg, "", func(context.Context) error {
		builds.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rebuildReq := make(chan struct{}, 1)
	s.startRebuildWorker(ctx, rebuildReq)

	rebuildReq <- struct{}{}
	assert.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 10*time.Millisecond)

	rebuildReq <- struct{}{}
	assert.Eventually(t, func() bool { return builds.Load() == 2 }, time.Second, 10*time.Millisecond)

	_, good := s.status.get()
	assert.True(t, good)
}

func TestRebuildUpdatesStatus(t *testing.T) {
	cfg := previewConfig(t)
	fail := true
	s := New(cfg, "", func(context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	})

	s.rebuild(context.Background())
	err, good := s.status.get()
	assert.Error(t, err)
	assert.False(t, good)

	fail = false
	s.rebuild(context.Background())
	err, good = s.status.get()
	assert.NoError(t, err)
	assert.True(t, good)
}
