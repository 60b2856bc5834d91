package apidoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options controls stub page rendering.
type Options struct {
	// MaxDepth is the toctree maxdepth used on package pages.
	MaxDepth int
	// Title is the root index heading; empty derives one from the package
	// name.
	Title string
}

var titler = cases.Title(language.English)

// Generate writes one stub page per module, one per package, and a root
// index, replacing whatever was in outDir's namespace before. It returns the
// relative paths of all written files, sorted by write order.
func Generate(pkg *Package, outDir string, opts Options) ([]string, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 4
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create stub directory: %w", err)
	}

	var written []string
	write := func(name, content string) error {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write stub %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	var genErr error
	pkg.Walk(func(p *Package) {
		if genErr != nil {
			return
		}
		if genErr = write(p.Qualified+".rst", renderPackagePage(p, opts)); genErr != nil {
			return
		}
		for _, mod := range p.Modules {
			if genErr = write(mod.Qualified+".rst", renderModulePage(mod)); genErr != nil {
				return
			}
		}
	})
	if genErr != nil {
		return nil, genErr
	}

	if err := write("index.rst", renderIndexPage(pkg, opts)); err != nil {
		return nil, err
	}
	return written, nil
}

func renderModulePage(mod Module) string {
	var b strings.Builder
	heading(&b, mod.Qualified+" module")
	fmt.Fprintf(&b, ".. automodule:: %s\n", mod.Qualified)
	b.WriteString("   :members:\n")
	b.WriteString("   :undoc-members:\n")
	b.WriteString("   :show-inheritance:\n")
	return b.String()
}

func renderPackagePage(p *Package, opts Options) string {
	var b strings.Builder
	heading(&b, p.Qualified+" package")

	if len(p.Subpackages) > 0 {
		subHeading(&b, "Subpackages")
		toctree(&b, opts.MaxDepth)
		for _, sub := range p.Subpackages {
			fmt.Fprintf(&b, "   %s\n", sub.Qualified)
		}
		b.WriteString("\n")
	}

	if len(p.Modules) > 0 {
		subHeading(&b, "Submodules")
		toctree(&b, opts.MaxDepth)
		for _, mod := range p.Modules {
			fmt.Fprintf(&b, "   %s\n", mod.Qualified)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, ".. automodule:: %s\n", p.Qualified)
	b.WriteString("   :members:\n")
	b.WriteString("   :undoc-members:\n")
	b.WriteString("   :show-inheritance:\n")
	return b.String()
}

func renderIndexPage(pkg *Package, opts Options) string {
	title := opts.Title
	if title == "" {
		title = titler.String(pkg.Name) + " API Reference"
	}
	var b strings.Builder
	heading(&b, title)
	toctree(&b, opts.MaxDepth)
	fmt.Fprintf(&b, "   %s\n", pkg.Qualified)
	return b.String()
}

func heading(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func subHeading(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", len(title)) + "\n\n")
}

func toctree(b *strings.Builder, maxDepth int) {
	b.WriteString(".. toctree::\n")
	fmt.Fprintf(b, "   :maxdepth: %d\n\n", maxDepth)
}
