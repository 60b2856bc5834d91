package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/pipeline"
	"github.com/coastalsim/docforge/internal/sphinx"
)

type capturePublisher struct {
	events []*BuildEvent
	closed bool
}

func (p *capturePublisher) PublishBuildEvent(_ context.Context, event *BuildEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error {
	p.closed = true
	return nil
}

func daemonConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Daemon.Interval = "30m"
	cfg.Daemon.Listen = "127.0.0.1:0"
	cfg.Daemon.MetricsPath = "/metrics"
	return cfg
}

func TestRunCycleSuccess(t *testing.T) {
	pub := &capturePublisher{}
	d := New(daemonConfig(), nil, pub, func(context.Context) (*pipeline.Build, error) {
		return &pipeline.Build{
			ID:            "b-1",
			Builder:       sphinx.BuilderHTML,
			SourceHash:    "abc123",
			SphinxVersion: "7.2.6",
		}, nil
	})

	d.runCycle(context.Background())

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, "success", ev.Status)
	assert.Equal(t, "b-1", ev.BuildID)
	assert.Equal(t, "html", ev.Builder)
	assert.Equal(t, "abc123", ev.SourceHash)
	assert.False(t, ev.Timestamp.IsZero())

	d.mu.RLock()
	defer d.mu.RUnlock()
	assert.Equal(t, "success", d.last.Status)
	assert.Equal(t, 1, d.cycles)
}

func TestRunCycleSkipped(t *testing.T) {
	pub := &capturePublisher{}
	d := New(daemonConfig(), nil, pub, func(context.Context) (*pipeline.Build, error) {
		return &pipeline.Build{ID: "b-2", Builder: sphinx.BuilderHTML, Skipped: true}, nil
	})

	d.runCycle(context.Background())

	require.Len(t, pub.events, 1)
	assert.Equal(t, "skipped", pub.events[0].Status)
}

func TestRunCycleFailure(t *testing.T) {
	pub := &capturePublisher{}
	d := New(daemonConfig(), nil, pub, func(context.Context) (*pipeline.Build, error) {
		return nil, errors.New("sphinx exploded")
	})

	d.runCycle(context.Background())

	require.Len(t, pub.events, 1)
	assert.Equal(t, "failed", pub.events[0].Status)
	assert.Equal(t, "sphinx exploded", pub.events[0].Error)
}

func TestRunCycleCanceledContext(t *testing.T) {
	pub := &capturePublisher{}
	called := false
	d := New(daemonConfig(), nil, pub, func(context.Context) (*pipeline.Build, error) {
		called = true
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.runCycle(ctx)

	assert.False(t, called)
	assert.Empty(t, pub.events)
}

func TestHandleHealth(t *testing.T) {
	d := New(daemonConfig(), nil, nil, func(context.Context) (*pipeline.Build, error) {
		return &pipeline.Build{ID: "b-3", Builder: sphinx.BuilderHTML}, nil
	})
	d.runCycle(context.Background())

	rec := httptest.NewRecorder()
	d.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Cycles)
	assert.Equal(t, "b-3", resp.LastBuild.BuildID)
}

func TestHandleHealthDegraded(t *testing.T) {
	d := New(daemonConfig(), nil, nil, func(context.Context) (*pipeline.Build, error) {
		return nil, errors.New("boom")
	})
	d.runCycle(context.Background())

	rec := httptest.NewRecorder()
	d.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "boom", resp.LastBuild.Error)
}
