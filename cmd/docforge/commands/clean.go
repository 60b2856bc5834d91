package commands

import (
	"fmt"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/workspace"
)

// CleanCmd removes build output and generated source pages.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if err := workspace.NewManager(cfg).Clean(); err != nil {
		return err
	}
	fmt.Println("Removed build tree and generated source pages.")
	return nil
}
