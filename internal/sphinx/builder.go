package sphinx

import (
	"fmt"
	"sort"
	"strings"
)

// Builder identifies a sphinx-build output format.
type Builder string

// The closed set of supported builders. `latexpdf`, `latexpdfja` and `info`
// map onto the latex/texinfo builders; the TeX/makeinfo post-processing step
// inside the output tree is left to those toolchains.
const (
	BuilderHTML       Builder = "html"
	BuilderDirHTML    Builder = "dirhtml"
	BuilderSingleHTML Builder = "singlehtml"
	BuilderPickle     Builder = "pickle"
	BuilderJSON       Builder = "json"
	BuilderHTMLHelp   Builder = "htmlhelp"
	BuilderQtHelp     Builder = "qthelp"
	BuilderDevHelp    Builder = "devhelp"
	BuilderEpub       Builder = "epub"
	BuilderLatex      Builder = "latex"
	BuilderLatexPDF   Builder = "latexpdf"
	BuilderLatexPDFJa Builder = "latexpdfja"
	BuilderText       Builder = "text"
	BuilderMan        Builder = "man"
	BuilderTexinfo    Builder = "texinfo"
	BuilderInfo       Builder = "info"
	BuilderGettext    Builder = "gettext"
	BuilderChanges    Builder = "changes"
	BuilderXML        Builder = "xml"
	BuilderPseudoXML  Builder = "pseudoxml"
	BuilderLinkcheck  Builder = "linkcheck"
	BuilderDoctest    Builder = "doctest"
	BuilderCoverage   Builder = "coverage"
)

type builderInfo struct {
	// sphinxName is the -b argument; differs from the target name for the
	// aliased pdf/info targets.
	sphinxName  string
	outputDir   string
	description string
}

var builders = map[Builder]builderInfo{
	BuilderHTML:       {"html", "html", "standalone HTML files"},
	BuilderDirHTML:    {"dirhtml", "dirhtml", "HTML files named index.html in directories"},
	BuilderSingleHTML: {"singlehtml", "singlehtml", "one single large HTML file"},
	BuilderPickle:     {"pickle", "pickle", "pickle files"},
	BuilderJSON:       {"json", "json", "JSON files"},
	BuilderHTMLHelp:   {"htmlhelp", "htmlhelp", "HTML Help project files"},
	BuilderQtHelp:     {"qthelp", "qthelp", "Qt Help project files"},
	BuilderDevHelp:    {"devhelp", "devhelp", "Devhelp project files"},
	BuilderEpub:       {"epub", "epub", "an epub document"},
	BuilderLatex:      {"latex", "latex", "LaTeX sources"},
	BuilderLatexPDF:   {"latex", "latex", "LaTeX sources for pdflatex"},
	BuilderLatexPDFJa: {"latex", "latex", "LaTeX sources for platex/dvipdfmx"},
	BuilderText:       {"text", "text", "plain text files"},
	BuilderMan:        {"man", "man", "manual pages"},
	BuilderTexinfo:    {"texinfo", "texinfo", "Texinfo sources"},
	BuilderInfo:       {"texinfo", "texinfo", "Texinfo sources for makeinfo"},
	BuilderGettext:    {"gettext", "locale", "PO message catalogs"},
	BuilderChanges:    {"changes", "changes", "an overview of changed/added/deprecated items"},
	BuilderXML:        {"xml", "xml", "Docutils-native XML files"},
	BuilderPseudoXML:  {"pseudoxml", "pseudoxml", "pseudo-XML files for debugging"},
	BuilderLinkcheck:  {"linkcheck", "linkcheck", "a check of document external link integrity"},
	BuilderDoctest:    {"doctest", "doctest", "doctests embedded in the documentation"},
	BuilderCoverage:   {"coverage", "coverage", "documentation coverage report"},
}

// ErrUnknownBuilder is returned when a target name is not a supported builder.
var ErrUnknownBuilder = fmt.Errorf("unknown builder")

// ParseBuilder validates a target name from the CLI.
func ParseBuilder(name string) (Builder, error) {
	b := Builder(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := builders[b]; !ok {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownBuilder, name, strings.Join(BuilderNames(), ", "))
	}
	return b, nil
}

// SphinxName is the value passed to sphinx-build -b.
func (b Builder) SphinxName() string { return builders[b].sphinxName }

// OutputDir is the subdirectory of the build tree receiving this builder's
// output.
func (b Builder) OutputDir() string { return builders[b].outputDir }

// Description is a short human-readable summary, used in help output.
func (b Builder) Description() string { return builders[b].description }

// RendersDocuments reports whether the builder produces a navigable document
// tree (as opposed to report-style builders like linkcheck or coverage).
func (b Builder) RendersDocuments() bool {
	switch b {
	case BuilderLinkcheck, BuilderDoctest, BuilderCoverage, BuilderChanges:
		return false
	}
	return true
}

// BuilderNames lists all supported target names, sorted.
func BuilderNames() []string {
	names := make([]string, 0, len(builders))
	for b := range builders {
		names = append(names, string(b))
	}
	sort.Strings(names)
	return names
}
