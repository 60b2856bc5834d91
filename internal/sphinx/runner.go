package sphinx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"

	"github.com/coastalsim/docforge/internal/logfields"
)

// Invocation describes one sphinx-build run.
type Invocation struct {
	Builder     Builder
	SourceDir   string
	OutputDir   string
	DoctreesDir string
	Jobs        int
	FailOnWarn  bool
	// Overrides are passed as -D name=value (conf.py overrides).
	Overrides map[string]string
	ExtraArgs []string
}

// Runner abstracts how documents are rendered after the source tree has been
// assembled. This allows swapping the external sphinx-build binary
// (BinaryRunner) with alternative strategies (e.g., a no-op for tests)
// without changing stage orchestration.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
	Version(ctx context.Context) (string, error)
}

// ErrSphinxNotFound indicates the sphinx-build binary is not on PATH.
var ErrSphinxNotFound = errors.New("sphinx-build binary not found")

// ErrSphinxFailed indicates a nonzero exit from sphinx-build.
var ErrSphinxFailed = errors.New("sphinx-build failed")

// BinaryRunner invokes the sphinx-build binary present on PATH.
type BinaryRunner struct {
	// Binary overrides the executable name; empty means "sphinx-build".
	Binary string
}

func (r *BinaryRunner) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return "sphinx-build"
}

// Args renders the command-line arguments for an invocation. Split out so the
// exact argument layout is testable without executing anything.
func Args(inv Invocation) []string {
	args := []string{"-b", inv.Builder.SphinxName()}
	if inv.DoctreesDir != "" {
		args = append(args, "-d", inv.DoctreesDir)
	}
	if inv.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(inv.Jobs))
	}
	if inv.FailOnWarn {
		args = append(args, "-W")
	}
	for _, key := range sortedKeys(inv.Overrides) {
		args = append(args, "-D", key+"="+inv.Overrides[key])
	}
	args = append(args, inv.ExtraArgs...)
	args = append(args, inv.SourceDir, inv.OutputDir)
	return args
}

// Run executes sphinx-build, propagating its exit status as an error with
// captured output attached.
func (r *BinaryRunner) Run(ctx context.Context, inv Invocation) error {
	path, err := exec.LookPath(r.binary())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSphinxNotFound, err)
	}

	args := Args(inv)
	slog.Debug("Invoking sphinx-build", logfields.Builder(string(inv.Builder)), slog.Any("args", args))

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// Always surface sphinx output when non-empty to diagnose issues.
	if out := stdout.String(); out != "" {
		slog.Debug("sphinx-build stdout", "output", out)
	}
	if errOut := stderr.String(); errOut != "" {
		slog.Warn("sphinx-build stderr", "error_output", errOut)
	}

	if runErr != nil {
		output := stderr.String()
		if output == "" {
			output = stdout.String()
		}
		if output != "" {
			return fmt.Errorf("%w: %w: %s", ErrSphinxFailed, runErr, output)
		}
		return fmt.Errorf("%w: %w", ErrSphinxFailed, runErr)
	}
	return nil
}

// sortedKeys keeps -D ordering deterministic so invocations stay reproducible.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
