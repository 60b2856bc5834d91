package main

import (
	"github.com/alecthomas/kong"

	"github.com/coastalsim/docforge/cmd/docforge/commands"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("docforge"),
		kong.Description("Sphinx documentation build orchestrator."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run(&commands.Global{}))
}
