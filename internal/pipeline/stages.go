package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/coastalsim/docforge/internal/apidoc"
	"github.com/coastalsim/docforge/internal/demos"
	"github.com/coastalsim/docforge/internal/gitinfo"
	"github.com/coastalsim/docforge/internal/hashing"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/manifest"
	"github.com/coastalsim/docforge/internal/markdown"
	"github.com/coastalsim/docforge/internal/registry"
	"github.com/coastalsim/docforge/internal/sphinx"
	"github.com/coastalsim/docforge/internal/state"
	"github.com/coastalsim/docforge/internal/workspace"
)

// Stage names.
const (
	StagePrepare     = "prepare"
	StageVersion     = "version"
	StageDemos       = "demos"
	StageAPIStubs    = "apidoc"
	StageRegistry    = "registry"
	StageMarkdown    = "markdown"
	StageFingerprint = "fingerprint"
	StageSphinx      = "sphinx"
	StageRecord      = "record"
)

// DefaultStages is the full build: assemble the source tree, fingerprint it,
// render, record.
func DefaultStages() []Stage {
	return []Stage{
		{Name: StagePrepare, Fn: runPrepare},
		{Name: StageVersion, Fn: runVersion},
		{Name: StageDemos, Fn: runDemos, SkipIf: func(b *Build) bool { return len(b.Cfg.Source.DemoGlobs) == 0 }},
		{Name: StageAPIStubs, Fn: runAPIStubs, SkipIf: func(b *Build) bool { return b.Cfg.Project.PackageDir == "" }},
		{Name: StageRegistry, Fn: runRegistry, SkipIf: func(b *Build) bool { return len(b.Cfg.Source.Registries) == 0 }},
		{Name: StageMarkdown, Fn: runMarkdown, SkipIf: func(b *Build) bool { return len(b.Cfg.Source.Pages) == 0 }},
		{Name: StageFingerprint, Fn: runFingerprint},
		{Name: StageSphinx, Fn: runSphinx},
		{Name: StageRecord, Fn: runRecord},
	}
}

// GenerateStages assembles the source tree without rendering, for the
// apidoc/demos subcommands.
func GenerateStages(names ...string) []Stage {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var stages []Stage
	for _, st := range DefaultStages() {
		if st.Name == StagePrepare || keep[st.Name] {
			stages = append(stages, st)
		}
	}
	return stages
}

// Run executes the build and records its outcome in the state store.
func Run(ctx context.Context, b *Build) error {
	b.appendEvent(ctx, state.EventBuildStarted, map[string]any{"builder": string(b.Builder)})

	runErr := RunStages(ctx, b, DefaultStages())

	status := state.StatusSuccess
	switch {
	case runErr != nil:
		status = state.StatusFailed
	case b.Skipped:
		status = state.StatusSkipped
	}
	b.appendEvent(ctx, state.EventBuildFinished, map[string]any{"status": status})
	if b.Store != nil {
		rec := state.BuildRecord{
			BuildID:       b.ID,
			Builder:       string(b.Builder),
			SourceHash:    b.SourceHash,
			SphinxVersion: b.SphinxVersion,
			Status:        status,
			StartedAt:     b.StartedAt,
			FinishedAt:    time.Now(),
		}
		if err := b.Store.RecordBuild(ctx, rec); err != nil {
			slog.Warn("Failed to record build", logfields.BuildID(b.ID), logfields.Error(err))
		}
	}
	return runErr
}

func (b *Build) appendEvent(ctx context.Context, eventType string, payload map[string]any) {
	if b.Store == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	if err := b.Store.Append(ctx, b.ID, eventType, data); err != nil {
		slog.Warn("Failed to append build event", logfields.BuildID(b.ID), logfields.Error(err))
	}
}

func runPrepare(_ context.Context, b *Build) error {
	if err := workspace.NewManager(b.Cfg).Prepare(); err != nil {
		return Fatalf(StagePrepare, err)
	}
	return nil
}

// runVersion resolves version/release overrides from git. Failure is a
// warning: documentation can render without a revision stamp.
func runVersion(_ context.Context, b *Build) error {
	info, err := gitinfo.Resolve(b.Cfg.Project.RepoDir)
	if err != nil {
		return Warnf(StageVersion, err)
	}
	b.Git = info
	slog.Info("Resolved project revision",
		logfields.Version(info.Version), logfields.Release(info.Release), slog.Bool("dirty", info.Dirty))
	return nil
}

func runDemos(_ context.Context, b *Build) error {
	ws := workspace.NewManager(b.Cfg)
	demoDir := b.Cfg.SourcePath(b.Cfg.Source.DemoDir)

	files, err := demos.Discover(b.Cfg.Source.DemoGlobs)
	if err != nil {
		return Fatalf(StageDemos, err)
	}
	if err := ws.ResetGenerated(demoDir); err != nil {
		return Fatalf(StageDemos, err)
	}
	staged, err := demos.Stage(files, demoDir)
	if err != nil {
		return Fatalf(StageDemos, err)
	}
	if err := demos.WriteIndex(demoDir, b.Cfg.Project.Name+" demos", staged); err != nil {
		return Fatalf(StageDemos, err)
	}
	b.DemoCount = len(staged)
	b.Recorder.IncGeneratedPages("demo", len(staged))
	slog.Info("Demos staged", logfields.Count(len(staged)), logfields.Path(demoDir))
	return nil
}

func runAPIStubs(_ context.Context, b *Build) error {
	ws := workspace.NewManager(b.Cfg)
	apiDir := b.Cfg.SourcePath(b.Cfg.Source.APIDir)

	scanner := &apidoc.Scanner{Exclude: b.Cfg.Source.Exclude}
	pkg, err := scanner.Scan(b.Cfg.Project.PackageDir)
	if err != nil {
		return Fatalf(StageAPIStubs, err)
	}
	if err := ws.ResetGenerated(apiDir); err != nil {
		return Fatalf(StageAPIStubs, err)
	}
	written, err := apidoc.Generate(pkg, apiDir, apidoc.Options{})
	if err != nil {
		return Fatalf(StageAPIStubs, err)
	}
	b.StubCount = len(written)
	b.Recorder.IncGeneratedPages("apidoc", len(written))
	slog.Info("API stubs generated", logfields.Count(len(written)), logfields.Package(pkg.Qualified))
	return nil
}

func runRegistry(_ context.Context, b *Build) error {
	genDir := b.Cfg.SourcePath(b.Cfg.Source.GeneratedDir)
	if err := workspace.NewManager(b.Cfg).ResetGenerated(genDir); err != nil {
		return Fatalf(StageRegistry, err)
	}
	for _, reg := range b.Cfg.Source.Registries {
		out := filepath.Join(genDir, reg.Output)
		if reg.Output == "" {
			base := filepath.Base(reg.Path)
			out = filepath.Join(genDir, base[:len(base)-len(filepath.Ext(base))]+".rst")
		}
		if err := registry.Generate(reg.Path, out); err != nil {
			return Fatalf(StageRegistry, err)
		}
		b.PageCount++
	}
	b.Recorder.IncGeneratedPages("registry", len(b.Cfg.Source.Registries))
	slog.Info("Registry pages generated", logfields.Count(len(b.Cfg.Source.Registries)))
	return nil
}

func runMarkdown(_ context.Context, b *Build) error {
	for _, page := range b.Cfg.Source.Pages {
		src, err := os.ReadFile(filepath.Clean(page.Source))
		if err != nil {
			return Fatalf(StageMarkdown, fmt.Errorf("read page %s: %w", page.Source, err))
		}
		rst, err := markdown.ToRST(src)
		if err != nil {
			return Fatalf(StageMarkdown, fmt.Errorf("convert page %s: %w", page.Source, err))
		}
		target := b.Cfg.SourcePath(page.Target)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return Fatalf(StageMarkdown, err)
		}
		if err := os.WriteFile(target, rst, 0o644); err != nil {
			return Fatalf(StageMarkdown, fmt.Errorf("write page %s: %w", target, err))
		}
		b.PageCount++
	}
	b.Recorder.IncGeneratedPages("markdown", len(b.Cfg.Source.Pages))
	return nil
}

// runFingerprint hashes the assembled source tree and takes the early exit
// when nothing changed since the last successful build of this builder.
func runFingerprint(ctx context.Context, b *Build) error {
	hash, err := hashing.SourceSetHash(b.Cfg.Source.Dir)
	if err != nil {
		return Fatalf(StageFingerprint, err)
	}
	b.SourceHash = hash

	if version, err := b.Runner.Version(ctx); err == nil {
		b.SphinxVersion = version
	} else {
		slog.Debug("Could not probe sphinx version", logfields.Error(err))
	}

	if b.Store == nil {
		return nil
	}
	// Report-style builders (linkcheck, doctest, coverage, changes) are rerun
	// even when sources are unchanged; their value is the fresh report.
	if !b.Builder.RendersDocuments() {
		return nil
	}
	last, err := b.Store.LastSuccessful(ctx, string(b.Builder))
	if err != nil {
		return nil // no history, full build
	}
	if last.SourceHash == hash && last.SphinxVersion == b.SphinxVersion && outputIntact(b.outputDir()) {
		return errNoChanges
	}
	return nil
}

func runSphinx(ctx context.Context, b *Build) error {
	b.OutputDir = b.outputDir()
	inv := sphinx.Invocation{
		Builder:     b.Builder,
		SourceDir:   b.Cfg.Source.Dir,
		OutputDir:   b.OutputDir,
		DoctreesDir: b.Cfg.Build.DoctreesDir,
		Jobs:        b.Cfg.Build.Jobs,
		FailOnWarn:  b.Cfg.Build.FailOnWarning,
		ExtraArgs:   b.Cfg.Build.ExtraArgs,
	}
	if b.Git != nil {
		inv.Overrides = b.Git.Overrides()
	}
	if err := b.Runner.Run(ctx, inv); err != nil {
		return Fatalf(StageSphinx, err)
	}
	b.appendEvent(ctx, state.EventStageCompleted, map[string]any{"stage": StageSphinx})
	return nil
}

// runRecord writes the build manifest next to the output. Failing to record
// does not fail a build that already rendered.
func runRecord(_ context.Context, b *Build) error {
	m := &manifest.BuildManifest{
		ID:        b.ID,
		Timestamp: b.StartedAt,
		Inputs: manifest.Inputs{
			SourceHash:    b.SourceHash,
			SphinxVersion: b.SphinxVersion,
		},
		Outputs: manifest.Outputs{
			Builder:   string(b.Builder),
			OutputDir: b.OutputDir,
			Demos:     b.DemoCount,
			APIStubs:  b.StubCount,
			Pages:     b.PageCount,
		},
		Status:   state.StatusSuccess,
		Duration: time.Since(b.StartedAt).Milliseconds(),
	}
	if b.Git != nil {
		m.Inputs.GitRevision = b.Git.Commit
		m.Inputs.Release = b.Git.Release
	}
	if err := m.Write(b.OutputDir); err != nil {
		return Warnf(StageRecord, err)
	}
	return nil
}

func (b *Build) outputDir() string {
	return b.Cfg.BuildPath(b.Builder.OutputDir())
}

// outputIntact reports whether a previous build's output tree still exists
// and is non-empty; a cleaned tree forces a rebuild even when hashes match.
func outputIntact(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
