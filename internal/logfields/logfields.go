package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyBuilder    = "builder"
	KeyStage      = "stage"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeySourceDir  = "source_dir"
	KeyBuildDir   = "build_dir"
	KeyPackage    = "package"
	KeyModule     = "module"
	KeyVersion    = "version"
	KeyRelease    = "release"
	KeyHash       = "hash"
	KeySubject    = "subject"
	KeyURL        = "url"
	KeyPort       = "port"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Builder(b string) slog.Attr      { return slog.String(KeyBuilder, b) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func SourceDir(d string) slog.Attr    { return slog.String(KeySourceDir, d) }
func BuildDir(d string) slog.Attr     { return slog.String(KeyBuildDir, d) }
func Package(p string) slog.Attr      { return slog.String(KeyPackage, p) }
func Module(m string) slog.Attr       { return slog.String(KeyModule, m) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Release(r string) slog.Attr      { return slog.String(KeyRelease, r) }
func Hash(h string) slog.Attr         { return slog.String(KeyHash, h) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
