// Package pipeline orchestrates a documentation build as an ordered list of
// named stages with per-stage timing, cancellation, metric recording and
// abort-on-fatal semantics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/gitinfo"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/metrics"
	"github.com/coastalsim/docforge/internal/sphinx"
	"github.com/coastalsim/docforge/internal/state"
)

// Stage is one step of a build.
type Stage struct {
	Name string
	Fn   func(ctx context.Context, b *Build) error
	// SkipIf short-circuits a stage that has nothing to do.
	SkipIf func(b *Build) bool
}

// StageError carries the failing stage and whether the failure aborts the
// build.
type StageError struct {
	Stage string
	Fatal bool
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fatalf wraps an error as a build-aborting stage failure.
func Fatalf(stage string, err error) *StageError {
	return &StageError{Stage: stage, Fatal: true, Err: err}
}

// Warnf wraps an error as a non-fatal stage failure; the build continues.
func Warnf(stage string, err error) *StageError {
	return &StageError{Stage: stage, Fatal: false, Err: err}
}

// errNoChanges signals the early exit taken when nothing changed since the
// last successful build.
var errNoChanges = errors.New("no changes since last successful build")

// Build carries the state threaded through the stages.
type Build struct {
	ID      string
	Cfg     *config.Config
	Builder sphinx.Builder
	Runner  sphinx.Runner

	Recorder metrics.Recorder
	Store    *state.Store // nil disables history and the early exit

	StartedAt     time.Time
	SourceHash    string
	SphinxVersion string
	Git           *gitinfo.Info

	// Counts reported in the manifest and metrics.
	DemoCount int
	StubCount int
	PageCount int

	OutputDir  string
	Skipped    bool
	SkipReason string
}

// NewBuild prepares a Build for one invocation.
func NewBuild(cfg *config.Config, builder sphinx.Builder, runner sphinx.Runner, rec metrics.Recorder, store *state.Store) *Build {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Build{
		ID:        state.NewBuildID(),
		Cfg:       cfg,
		Builder:   builder,
		Runner:    runner,
		Recorder:  rec,
		Store:     store,
		StartedAt: time.Now(),
	}
}

// RunStages executes stages in order, recording timing and stopping on the
// first fatal error.
func RunStages(ctx context.Context, b *Build, stages []Stage) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			b.Recorder.IncStageResult(st.Name, metrics.ResultCanceled)
			b.Recorder.IncBuildOutcome("canceled")
			return Fatalf(st.Name, ctx.Err())
		default:
		}

		if st.SkipIf != nil && st.SkipIf(b) {
			slog.Debug("Stage skipped", logfields.Stage(st.Name))
			continue
		}

		t0 := time.Now()
		err := st.Fn(ctx, b)
		dur := time.Since(t0)
		b.Recorder.ObserveStageDuration(st.Name, dur)
		slog.Debug("Stage finished", logfields.Stage(st.Name), logfields.DurationMS(float64(dur.Milliseconds())))

		if err == nil {
			b.Recorder.IncStageResult(st.Name, metrics.ResultSuccess)
			continue
		}

		if errors.Is(err, errNoChanges) {
			b.Skipped = true
			b.SkipReason = "no_changes"
			b.Recorder.IncStageResult(st.Name, metrics.ResultSuccess)
			b.Recorder.IncBuildOutcome("skipped")
			slog.Info("Early build exit: sources unchanged and existing output valid",
				logfields.BuildID(b.ID), logfields.Builder(string(b.Builder)))
			return nil
		}

		var se *StageError
		if !errors.As(err, &se) {
			se = Fatalf(st.Name, err)
		}
		if !se.Fatal {
			b.Recorder.IncStageResult(st.Name, metrics.ResultWarning)
			slog.Warn("Stage reported a warning", logfields.Stage(st.Name), logfields.Error(se.Err))
			continue
		}
		b.Recorder.IncStageResult(st.Name, metrics.ResultFatal)
		b.Recorder.IncBuildOutcome("failed")
		return se
	}

	b.Recorder.ObserveBuildDuration(string(b.Builder), time.Since(b.StartedAt))
	b.Recorder.IncBuildOutcome("success")
	return nil
}
