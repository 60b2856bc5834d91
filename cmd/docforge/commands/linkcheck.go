package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/linkcheck"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/sphinx"
	"github.com/coastalsim/docforge/internal/workspace"
)

// LinkcheckCmd verifies links in the built HTML tree.
type LinkcheckCmd struct {
	External bool `help:"Also probe external links over HTTP (overrides config)"`
}

func (l *LinkcheckCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if l.External {
		cfg.Linkcheck.External = true
	}

	htmlDir := workspace.NewManager(cfg).OutputDir(sphinx.BuilderHTML.OutputDir())
	if _, err := os.Stat(htmlDir); err != nil {
		return fmt.Errorf("no built HTML tree at %s; run 'docforge html' first", htmlDir)
	}

	var cache linkcheck.Cache
	if cfg.Linkcheck.External && cfg.Linkcheck.CacheBucket != "" {
		natsCache, err := linkcheck.NewNATSCache(cfg.Linkcheck.NATSURL, cfg.Linkcheck.CacheBucket)
		if err != nil {
			slog.Warn("Link cache unavailable, continuing without it", logfields.Error(err))
		} else {
			cache = natsCache
			defer func() { _ = natsCache.Close() }()
		}
	}

	report, err := linkcheck.NewService(cfg, cache, nil).CheckTree(ctx, htmlDir)
	if err != nil {
		return err
	}

	if len(report.Broken) == 0 {
		fmt.Printf("Checked %d links across %d pages; all resolve.\n", report.Links, report.Pages)
		return nil
	}
	for _, b := range report.Broken {
		fmt.Printf("%s: %s (%s)\n", b.Page, b.URL, b.Reason)
	}
	return fmt.Errorf("%d broken links found", len(report.Broken))
}
