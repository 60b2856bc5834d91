// Package daemon runs periodic documentation rebuilds with health and
// metrics endpoints.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/metrics"
	"github.com/coastalsim/docforge/internal/pipeline"
)

// BuildFunc runs one build cycle and returns its result.
type BuildFunc func(ctx context.Context) (*pipeline.Build, error)

// lastBuild is the most recent build cycle outcome.
type lastBuild struct {
	BuildID    string    `json:"build_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Daemon rebuilds documentation on an interval and exposes health and
// Prometheus metrics over HTTP.
type Daemon struct {
	cfg       *config.Config
	build     BuildFunc
	publisher Publisher
	registry  *prometheus.Registry
	startTime time.Time

	mu     sync.RWMutex
	last   lastBuild
	cycles int
}

// New creates a daemon. publisher may be nil, registry may be nil when no
// metrics endpoint is wanted.
func New(cfg *config.Config, registry *prometheus.Registry, publisher Publisher, build BuildFunc) *Daemon {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Daemon{
		cfg:       cfg,
		build:     build,
		publisher: publisher,
		registry:  registry,
		startTime: time.Now(),
	}
}

// Run builds once immediately, then rebuilds on the configured interval
// until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	interval := d.cfg.RebuildInterval()
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { d.runCycle(ctx) }),
		gocron.WithName("periodic-build"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule periodic build: %w", err)
	}

	httpServer := d.startHTTPServer()

	slog.Info("Daemon started",
		slog.Duration("interval", interval),
		slog.String("listen", d.cfg.Daemon.Listen))

	d.runCycle(ctx)
	scheduler.Start()

	<-ctx.Done()
	slog.Info("Shutting down daemon")

	if err := scheduler.Shutdown(); err != nil {
		slog.Warn("Scheduler shutdown error", logfields.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	if err := d.publisher.Close(); err != nil {
		slog.Warn("Publisher close error", logfields.Error(err))
	}
	return nil
}

// runCycle executes one build and records and publishes the outcome.
func (d *Daemon) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	b, err := d.build(ctx)

	event := NewBuildEvent(b, err, time.Since(start))
	rec := lastBuild{
		BuildID:    event.BuildID,
		Status:     event.Status,
		Error:      event.Error,
		FinishedAt: time.Now(),
	}

	d.mu.Lock()
	d.last = rec
	d.cycles++
	d.mu.Unlock()

	if err != nil {
		slog.Error("Scheduled build failed", logfields.Error(err))
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if perr := d.publisher.PublishBuildEvent(pubCtx, event); perr != nil {
		slog.Warn("Failed to publish build event", logfields.Error(perr))
	}
}

func (d *Daemon) startHTTPServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealth)
	if d.registry != nil {
		mux.Handle(d.cfg.Daemon.MetricsPath, metrics.Handler(d.registry))
	}

	server := &http.Server{
		Addr:              d.cfg.Daemon.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Daemon HTTP server failed", logfields.Error(err))
		}
	}()
	return server
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Cycles    int       `json:"cycles"`
	LastBuild lastBuild `json:"last_build"`
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	d.mu.RLock()
	last := d.last
	cycles := d.cycles
	d.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if last.Status == "failed" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    status,
		Uptime:    time.Since(d.startTime).Round(time.Second).String(),
		Cycles:    cycles,
		LastBuild: last,
	})
}
