// Package demos copies demo files into the documentation source tree.
// Literate Python demos are converted to reStructuredText on the way in;
// everything else (images, data files, plain .rst) is copied verbatim.
package demos

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coastalsim/docforge/internal/literate"
	"github.com/coastalsim/docforge/internal/logfields"
)

// StagedFile records one demo file placed into the source tree.
type StagedFile struct {
	Source    string
	Target    string // path inside the demo directory
	Converted bool   // true when literate-converted rather than copied
}

// Discover expands the configured globs into a sorted, de-duplicated file
// list. A glob matching nothing is not an error; demos are optional.
func Discover(globs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, glob := range globs {
		matches, err := filepath.Glob(glob)
		if err != nil {
			return nil, fmt.Errorf("bad demo glob %q: %w", glob, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Stage places the discovered files into destDir. Name collisions between
// different source directories are disambiguated with the parent directory
// name, matching how demo trees are usually laid out (one demo per
// directory).
func Stage(files []string, destDir string) ([]StagedFile, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("create demo directory: %w", err)
	}

	staged := make([]StagedFile, 0, len(files))
	used := make(map[string]string) // target name -> source

	for _, src := range files {
		name := targetName(src)
		if prev, clash := used[name]; clash {
			name = filepath.Base(filepath.Dir(src)) + "_" + name
			slog.Debug("Demo name collision, disambiguating",
				logfields.File(filepath.Base(src)), slog.String("with", prev))
		}
		used[name] = src

		sf := StagedFile{Source: src, Target: name}
		data, err := os.ReadFile(filepath.Clean(src))
		if err != nil {
			return nil, fmt.Errorf("read demo %s: %w", src, err)
		}
		if strings.HasSuffix(src, ".py") {
			data = literate.ToRST(data)
			sf.Converted = true
		}
		if err := os.WriteFile(filepath.Join(destDir, name), data, 0o644); err != nil {
			return nil, fmt.Errorf("stage demo %s: %w", name, err)
		}
		staged = append(staged, sf)
	}
	return staged, nil
}

// WriteIndex writes the demos toctree page listing every staged document.
func WriteIndex(destDir, title string, staged []StagedFile) error {
	if title == "" {
		title = "Demos"
	}
	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
	b.WriteString(".. toctree::\n   :maxdepth: 1\n\n")
	for _, sf := range staged {
		if !strings.HasSuffix(sf.Target, ".rst") {
			continue // assets are referenced by pages, not listed
		}
		fmt.Fprintf(&b, "   %s\n", strings.TrimSuffix(sf.Target, ".rst"))
	}
	if err := os.WriteFile(filepath.Join(destDir, "index.rst"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write demo index: %w", err)
	}
	return nil
}

// targetName maps a source path to its staged name: literate .py demos become
// .rst documents, everything else keeps its name.
func targetName(src string) string {
	base := filepath.Base(src)
	if strings.HasSuffix(base, ".py") {
		return strings.TrimSuffix(base, ".py") + ".rst"
	}
	return base
}
