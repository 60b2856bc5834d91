package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/coastalsim/docforge/internal/preview"
	"github.com/coastalsim/docforge/internal/sphinx"
	"github.com/coastalsim/docforge/internal/workspace"
)

// PreviewCmd serves built HTML locally and rebuilds on source changes.
type PreviewCmd struct {
	Port int `short:"p" help:"Override the configured preview port"`
}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env, err := newBuildEnv(root)
	if err != nil {
		return err
	}
	defer env.Close()
	if p.Port != 0 {
		env.cfg.Preview.Port = p.Port
	}

	htmlDir := workspace.NewManager(env.cfg).OutputDir(sphinx.BuilderHTML.OutputDir())
	server := preview.New(env.cfg, htmlDir, func(ctx context.Context) error {
		_, err := env.runPipeline(ctx, sphinx.BuilderHTML)
		return err
	})
	return server.Run(ctx)
}
