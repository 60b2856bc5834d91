package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/metrics"
	"github.com/coastalsim/docforge/internal/pipeline"
	"github.com/coastalsim/docforge/internal/sphinx"
	"github.com/coastalsim/docforge/internal/state"
)

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command tree.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docforge.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	HTML      HTMLCmd      `cmd:"" name:"html" help:"Build the HTML documentation (assembles demos, API stubs, and generated pages first)"`
	Build     BuildCmd     `cmd:"" help:"Run the build pipeline with a specific sphinx builder"`
	Clean     CleanCmd     `cmd:"" help:"Remove the build tree and generated source pages"`
	Apidoc    ApidocCmd    `cmd:"" help:"Regenerate API stub pages from the installed package"`
	Demos     DemosCmd     `cmd:"" help:"Convert and stage demo files into the source tree"`
	Linkcheck LinkcheckCmd `cmd:"" help:"Verify links in the built HTML tree"`
	Preview   PreviewCmd   `cmd:"" help:"Serve built HTML locally and rebuild on source changes"`
	Daemon    DaemonCmd    `cmd:"" help:"Run periodic rebuilds with health and metrics endpoints"`
	Init      InitCmd      `cmd:"" help:"Write a commented starter configuration file"`
}

// AfterApply runs after flag parsing; sets up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// buildEnv bundles the pieces a build pipeline run needs.
type buildEnv struct {
	cfg      *config.Config
	runner   sphinx.Runner
	store    *state.Store
	recorder metrics.Recorder
}

// newBuildEnv loads configuration and opens the build history store.
func newBuildEnv(root *CLI) (*buildEnv, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Build.StatePath), 0o755); err != nil {
		slog.Warn("Cannot create state directory", logfields.Path(cfg.Build.StatePath), logfields.Error(err))
	}
	store, err := state.NewStore(cfg.Build.StatePath)
	if err != nil {
		// Build history is an optimization; a broken store must not block
		// builds.
		slog.Warn("Build history unavailable", logfields.Path(cfg.Build.StatePath), logfields.Error(err))
		store = nil
	}

	return &buildEnv{
		cfg:      cfg,
		runner:   &sphinx.BinaryRunner{Binary: cfg.Build.Binary},
		store:    store,
		recorder: metrics.NoopRecorder{},
	}, nil
}

func (e *buildEnv) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Warn("Failed to close build history store", logfields.Error(err))
		}
	}
}

// runPipeline executes the full build for one builder.
func (e *buildEnv) runPipeline(ctx context.Context, builder sphinx.Builder) (*pipeline.Build, error) {
	b := pipeline.NewBuild(e.cfg, builder, e.runner, e.recorder, e.store)
	if err := pipeline.Run(ctx, b); err != nil {
		return b, fmt.Errorf("build %s: %w", builder, err)
	}
	return b, nil
}
