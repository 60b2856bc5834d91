// Package registry renders declarative YAML registries (model fields,
// solver options) into generated reStructuredText reference pages. The
// registries ship with the documented package; nothing here introspects
// code.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Registry is the parsed form of one registry file.
type Registry struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Sections    []Section `yaml:"sections"`
}

// Section groups related entries under one heading.
type Section struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Entries     []Entry `yaml:"entries"`
}

// Entry documents a single field or option.
type Entry struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Units       string `yaml:"units,omitempty"`
	Description string `yaml:"description"`
}

// Load parses a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if reg.Title == "" {
		return nil, fmt.Errorf("registry %s has no title", path)
	}
	for _, sec := range reg.Sections {
		if sec.Name == "" {
			return nil, fmt.Errorf("registry %s has a section without a name", path)
		}
		for _, e := range sec.Entries {
			if e.Name == "" {
				return nil, fmt.Errorf("registry %s: section %q has an entry without a name", path, sec.Name)
			}
		}
	}
	return &reg, nil
}

var pageTemplate = template.Must(template.New("registry").Funcs(template.FuncMap{
	"underline": underline,
	"indent":    indentBlock,
}).Parse(`{{.Title}}
{{underline .Title "="}}
{{if .Description}}
{{.Description}}
{{end}}{{range .Sections}}
{{.Name}}
{{underline .Name "-"}}
{{if .Description}}
{{.Description}}
{{end}}{{range .Entries}}
.. option:: {{.Name}}

{{indent .Description}}
{{if .Type}}
   :type: {{.Type}}{{end}}{{if .Default}}
   :default: {{.Default}}{{end}}{{if .Units}}
   :units: {{.Units}}{{end}}
{{end}}{{end}}`))

// Render writes the reStructuredText page for a registry.
func Render(reg *Registry, outPath string) error {
	var b strings.Builder
	if err := pageTemplate.Execute(&b, reg); err != nil {
		return fmt.Errorf("render registry %q: %w", reg.Title, err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create registry output dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write registry page %s: %w", outPath, err)
	}
	return nil
}

// Generate loads and renders a registry in one step.
func Generate(registryPath, outPath string) error {
	reg, err := Load(registryPath)
	if err != nil {
		return err
	}
	return Render(reg, outPath)
}

func underline(s, ch string) string {
	return strings.Repeat(ch, len(s))
}

func indentBlock(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "   " + l
		}
	}
	return strings.Join(lines, "\n")
}
