// Package apidoc generates reStructuredText API stub pages by introspecting
// an installed package's module tree on the filesystem, the way sphinx-apidoc
// does: directories containing __init__.py are packages, .py files are
// modules.
package apidoc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Module is a single importable module.
type Module struct {
	Name      string // solver2d
	Qualified string // thetis.solver2d
	Path      string // filesystem path of the .py file
}

// Package is a directory with an __init__.py, possibly nesting further
// packages.
type Package struct {
	Name        string
	Qualified   string
	Path        string
	Subpackages []*Package
	Modules     []Module
}

// Scanner walks a package tree.
type Scanner struct {
	// Exclude holds glob patterns (matched against base names) to skip.
	Exclude []string
	// IncludePrivate includes modules and packages whose name starts with
	// an underscore. Dunder files (__main__.py etc.) are always skipped.
	IncludePrivate bool
}

// Scan builds the package tree rooted at dir. dir must contain __init__.py.
func (s *Scanner) Scan(dir string) (*Package, error) {
	if !isPackageDir(dir) {
		return nil, fmt.Errorf("not a package directory (no __init__.py): %s", dir)
	}
	return s.scanPackage(dir, filepath.Base(dir))
}

func (s *Scanner) scanPackage(dir, qualified string) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package directory %s: %w", dir, err)
	}

	pkg := &Package{
		Name:      filepath.Base(dir),
		Qualified: qualified,
		Path:      dir,
	}

	for _, entry := range entries {
		name := entry.Name()
		if s.excluded(name) {
			continue
		}
		if entry.IsDir() {
			sub := filepath.Join(dir, name)
			if !isPackageDir(sub) || !s.visible(name) {
				continue
			}
			subPkg, err := s.scanPackage(sub, qualified+"."+name)
			if err != nil {
				return nil, err
			}
			pkg.Subpackages = append(pkg.Subpackages, subPkg)
			continue
		}
		if !strings.HasSuffix(name, ".py") || name == "__init__.py" {
			continue
		}
		modName := strings.TrimSuffix(name, ".py")
		if strings.HasPrefix(modName, "__") || !s.visible(modName) {
			continue
		}
		pkg.Modules = append(pkg.Modules, Module{
			Name:      modName,
			Qualified: qualified + "." + modName,
			Path:      filepath.Join(dir, name),
		})
	}

	sort.Slice(pkg.Subpackages, func(i, j int) bool { return pkg.Subpackages[i].Name < pkg.Subpackages[j].Name })
	sort.Slice(pkg.Modules, func(i, j int) bool { return pkg.Modules[i].Name < pkg.Modules[j].Name })
	return pkg, nil
}

func (s *Scanner) visible(name string) bool {
	if s.IncludePrivate {
		return true
	}
	return !strings.HasPrefix(name, "_")
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.Exclude {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func isPackageDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "__init__.py"))
	return err == nil && !info.IsDir()
}

// Walk visits the package and all nested packages depth-first.
func (p *Package) Walk(fn func(*Package)) {
	fn(p)
	for _, sub := range p.Subpackages {
		sub.Walk(fn)
	}
}

// AllModules returns every module in the tree, sorted by qualified name.
func (p *Package) AllModules() []Module {
	var mods []Module
	p.Walk(func(pkg *Package) { mods = append(mods, pkg.Modules...) })
	sort.Slice(mods, func(i, j int) bool { return mods[i].Qualified < mods[j].Qualified })
	return mods
}
