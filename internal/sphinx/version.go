package sphinx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version probes `sphinx-build --version` and returns the reported version
// string, e.g. "sphinx-build 7.2.6" -> "7.2.6".
func (r *BinaryRunner) Version(ctx context.Context) (string, error) {
	path, err := exec.LookPath(r.binary())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSphinxNotFound, err)
	}
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probe sphinx version: %w", err)
	}
	return ParseVersionOutput(string(out)), nil
}

// ParseVersionOutput extracts the version number from --version output.
func ParseVersionOutput(out string) string {
	line := strings.TrimSpace(out)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
