package commands

import (
	"fmt"

	"github.com/coastalsim/docforge/internal/apidoc"
	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/demos"
	"github.com/coastalsim/docforge/internal/workspace"
)

// ApidocCmd regenerates only the API stub pages.
type ApidocCmd struct {
	MaxDepth int `name:"max-depth" default:"4" help:"Toctree depth for the API index page"`
}

func (a *ApidocCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.Project.PackageDir == "" {
		return fmt.Errorf("project.package_dir is not configured")
	}

	ws := workspace.NewManager(cfg)
	if err := ws.Prepare(); err != nil {
		return err
	}

	scanner := &apidoc.Scanner{Exclude: cfg.Source.Exclude}
	pkg, err := scanner.Scan(cfg.Project.PackageDir)
	if err != nil {
		return err
	}

	outDir := cfg.SourcePath(cfg.Source.APIDir)
	if err := ws.ResetGenerated(outDir); err != nil {
		return err
	}
	stubs, err := apidoc.Generate(pkg, outDir, apidoc.Options{MaxDepth: a.MaxDepth})
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d API stub pages in %s.\n", len(stubs), outDir)
	return nil
}

// DemosCmd stages only the demo pages.
type DemosCmd struct{}

func (d *DemosCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if len(cfg.Source.DemoGlobs) == 0 {
		return fmt.Errorf("source.demo_globs is not configured")
	}

	ws := workspace.NewManager(cfg)
	if err := ws.Prepare(); err != nil {
		return err
	}

	files, err := demos.Discover(cfg.Source.DemoGlobs)
	if err != nil {
		return err
	}
	destDir := cfg.SourcePath(cfg.Source.DemoDir)
	if err := ws.ResetGenerated(destDir); err != nil {
		return err
	}
	staged, err := demos.Stage(files, destDir)
	if err != nil {
		return err
	}
	if err := demos.WriteIndex(destDir, cfg.Project.Name+" demos", staged); err != nil {
		return err
	}
	fmt.Printf("Staged %d demo files in %s.\n", len(staged), destDir)
	return nil
}
