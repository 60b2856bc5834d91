package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/daemon"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/pipeline"
	"github.com/coastalsim/docforge/internal/sphinx"
)

// HTMLCmd runs the full pipeline with the html builder.
type HTMLCmd struct{}

func (h *HTMLCmd) Run(_ *Global, root *CLI) error {
	return runBuilder(root, sphinx.BuilderHTML)
}

// BuildCmd runs the pipeline with any known sphinx builder.
type BuildCmd struct {
	Builder string `arg:"" help:"Sphinx builder to run (dirhtml, singlehtml, epub, latex, man, ...)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	builder, err := sphinx.ParseBuilder(b.Builder)
	if err != nil {
		return err
	}
	return runBuilder(root, builder)
}

func runBuilder(root *CLI, builder sphinx.Builder) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env, err := newBuildEnv(root)
	if err != nil {
		return err
	}
	defer env.Close()

	start := time.Now()
	b, err := env.runPipeline(ctx, builder)
	publishBuildEvent(env.cfg, b, err, time.Since(start))
	if err != nil {
		return err
	}
	if b.Skipped {
		slog.Info("Build skipped", logfields.Builder(string(builder)), slog.String("reason", b.SkipReason))
		fmt.Printf("Nothing to do; %s output is up to date.\n", builder)
		return nil
	}
	fmt.Printf("Build finished. The %s pages are in %s.\n", builder, b.OutputDir)
	return nil
}

// publishBuildEvent emits a build event over NATS when event publication is
// enabled. Publication failures never fail the build.
func publishBuildEvent(cfg *config.Config, b *pipeline.Build, buildErr error, duration time.Duration) {
	if !cfg.Events.Enabled {
		return
	}
	pub, err := daemon.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		slog.Warn("Build event publisher unavailable", logfields.Error(err))
		return
	}
	defer func() { _ = pub.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.PublishBuildEvent(ctx, daemon.NewBuildEvent(b, buildErr, duration)); err != nil {
		slog.Warn("Failed to publish build event", logfields.Error(err))
	}
}
