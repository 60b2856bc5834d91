package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coastalsim/docforge/internal/daemon"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/metrics"
	"github.com/coastalsim/docforge/internal/pipeline"
	"github.com/coastalsim/docforge/internal/sphinx"
)

// DaemonCmd runs periodic rebuilds with health and metrics endpoints.
type DaemonCmd struct{}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env, err := newBuildEnv(root)
	if err != nil {
		return err
	}
	defer env.Close()

	registry := prometheus.NewRegistry()
	env.recorder = metrics.NewPrometheusRecorder(registry)

	var publisher daemon.Publisher
	if env.cfg.Events.Enabled {
		natsPub, err := daemon.NewNATSPublisher(env.cfg.Events.NATSURL, env.cfg.Events.Subject)
		if err != nil {
			slog.Warn("Build event publisher unavailable, continuing without it", logfields.Error(err))
		} else {
			publisher = natsPub
		}
	}

	dm := daemon.New(env.cfg, registry, publisher, func(ctx context.Context) (*pipeline.Build, error) {
		return env.runPipeline(ctx, sphinx.BuilderHTML)
	})
	return dm.Run(ctx)
}
