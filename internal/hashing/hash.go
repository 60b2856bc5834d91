package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// emptySetMarker gives the empty source set a known, stable hash.
const emptySetMarker = "empty-source-set"

// SourceSetHash computes a deterministic hash of every regular file under
// root. The hash covers relative paths and file contents, so renames,
// additions, removals and edits all change it. This enables the early build
// exit when nothing changed since the last successful run.
func SourceSetHash(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold editor state, not sources.
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk source tree: %w", err)
	}

	if len(paths) == 0 {
		h := sha256.Sum256([]byte(emptySetMarker))
		return hex.EncodeToString(h[:]), nil
	}

	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", fmt.Errorf("relativize %s: %w", path, err)
		}
		// Forward slashes keep hashes portable across platforms.
		fmt.Fprintf(h, "%s\n", filepath.ToSlash(rel))
		if err := hashFileInto(h, path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashStrings hashes an ordered list of strings, used for config and
// invocation fingerprints.
func HashStrings(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashFileInto(h io.Writer, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	return nil
}
