// Package preview serves built HTML locally and rebuilds when the source
// tree changes.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/workspace"
)

// BuildFunc runs one documentation build.
type BuildFunc func(ctx context.Context) error

// buildStatus tracks the last build outcome for the status endpoint.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
}

func (bs *buildStatus) setError(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
}

func (bs *buildStatus) setSuccess() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = nil
	bs.hasGoodBuild = true
}

func (bs *buildStatus) get() (err error, hasGoodBuild bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastError, bs.hasGoodBuild
}

// Server watches the documentation sources, rebuilds on change, and serves
// the rendered HTML over a local HTTP server.
type Server struct {
	cfg     *config.Config
	build   BuildFunc
	htmlDir string
	status  buildStatus

	// ignorePrefixes are generated areas inside the source tree. Events
	// under them would retrigger the build that produced them.
	ignorePrefixes []string
}

// New creates a preview server. htmlDir is the directory the build renders
// into.
func New(cfg *config.Config, htmlDir string, build BuildFunc) *Server {
	s := &Server{cfg: cfg, build: build, htmlDir: htmlDir}
	ws := workspace.NewManager(cfg)
	for _, dir := range ws.GeneratedSourceDirs() {
		s.ignorePrefixes = append(s.ignorePrefixes, dir+string(os.PathSeparator))
	}
	s.ignorePrefixes = append(s.ignorePrefixes, ws.GeneratedSourceFiles()...)
	return s
}

// Run performs an initial build, then serves and watches until ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.build(ctx); err != nil {
		slog.Error("Initial build failed", logfields.Error(err))
		s.status.setError(err)
	} else {
		s.status.setSuccess()
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Preview.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server failed", logfields.Error(err))
		}
	}()
	slog.Info("Preview server listening",
		logfields.Port(s.cfg.Preview.Port),
		logfields.URL(fmt.Sprintf("http://%s/", addr)))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := addDirsRecursive(watcher, s.cfg.Source.Dir); err != nil {
		return err
	}

	rebuildReq, trigger := s.debouncer()
	s.startRebuildWorker(ctx, rebuildReq)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down preview server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Preview server shutdown error", logfields.Error(err))
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleFileEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// statusPath is the preview server's build status endpoint.
const statusPath = "/_docforge/status"

// handler serves the rendered tree, with a status page while no good build
// exists yet.
func (s *Server) handler() http.Handler {
	files := http.FileServer(http.Dir(s.htmlDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == statusPath {
			s.serveStatus(w)
			return
		}
		lastErr, hasGoodBuild := s.status.get()
		if !hasGoodBuild && lastErr != nil {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "documentation build failed:\n\n%v\n", lastErr)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) serveStatus(w http.ResponseWriter) {
	lastErr, hasGoodBuild := s.status.get()
	resp := struct {
		Status    string `json:"status"`
		Error     string `json:"error,omitempty"`
		GoodBuild bool   `json:"good_build"`
	}{Status: "ok", GoodBuild: hasGoodBuild}
	if lastErr != nil {
		resp.Status = "failed"
		resp.Error = lastErr.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// debouncer coalesces bursts of filesystem events into single rebuild
// requests.
func (s *Server) debouncer() (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)
	delay := s.cfg.DebounceInterval()

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker processes rebuild requests one at a time, coalescing
// requests that arrive mid-build.
func (s *Server) startRebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	var mu sync.Mutex
	running := false
	pending := false

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				mu.Lock()
				if running {
					pending = true
					mu.Unlock()
					continue
				}
				running = true
				mu.Unlock()

				s.rebuild(ctx)

				mu.Lock()
				running = false
				if pending {
					pending = false
					mu.Unlock()
					select {
					case rebuildReq <- struct{}{}:
					default:
					}
				} else {
					mu.Unlock()
				}
			}
		}
	}()
}

func (s *Server) rebuild(ctx context.Context) {
	slog.Info("Change detected; rebuilding documentation")
	if err := s.build(ctx); err != nil {
		slog.Warn("Rebuild failed", logfields.Error(err))
		s.status.setError(err)
		return
	}
	s.status.setSuccess()
}

func (s *Server) handleFileEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if s.shouldIgnore(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (s *Server) shouldIgnore(path string) bool {
	for _, prefix := range s.ignorePrefixes {
		if path == strings.TrimSuffix(prefix, string(os.PathSeparator)) || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return shouldIgnoreName(path)
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreName filters out hidden files and editor temp/swap files.
func shouldIgnoreName(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
