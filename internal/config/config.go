package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Source    SourceConfig    `yaml:"source"`
	Build     BuildConfig     `yaml:"build"`
	Preview   PreviewConfig   `yaml:"preview,omitempty"`
	Daemon    DaemonConfig    `yaml:"daemon,omitempty"`
	Events    EventsConfig    `yaml:"events,omitempty"`
	Linkcheck LinkcheckConfig `yaml:"linkcheck,omitempty"`
}

// ProjectConfig describes the documented project.
type ProjectConfig struct {
	Name   string `yaml:"name"`
	Author string `yaml:"author,omitempty"`
	// PackageDir is the root of the installed package whose module tree gets
	// API stub pages (the directory containing the top-level __init__.py).
	PackageDir string `yaml:"package_dir,omitempty"`
	// RepoDir is the git working tree used to resolve version/release
	// overrides. Defaults to the current directory.
	RepoDir string `yaml:"repo_dir,omitempty"`
}

// SourceConfig describes the documentation source tree and its generated areas.
type SourceConfig struct {
	Dir          string         `yaml:"dir"`
	DemoGlobs    []string       `yaml:"demo_globs,omitempty"`
	DemoDir      string         `yaml:"demo_dir,omitempty"`      // subdir of Dir, derived pages
	APIDir       string         `yaml:"api_dir,omitempty"`       // subdir of Dir, generated stubs
	GeneratedDir string         `yaml:"generated_dir,omitempty"` // subdir of Dir, registry pages
	Pages        []MarkdownPage `yaml:"pages,omitempty"`
	Registries   []Registry     `yaml:"registries,omitempty"`
	// Exclude lists glob patterns skipped during API stub generation.
	Exclude []string `yaml:"exclude,omitempty"`
}

// MarkdownPage maps a Markdown file outside the docs tree to a generated
// reStructuredText page inside it.
type MarkdownPage struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"` // relative to SourceConfig.Dir
}

// Registry points at a YAML registry file rendered into a reference page.
type Registry struct {
	Path   string `yaml:"path"`
	Output string `yaml:"output"` // relative to GeneratedDir
}

// BuildConfig controls how sphinx-build is invoked.
type BuildConfig struct {
	Dir           string   `yaml:"dir"`
	DoctreesDir   string   `yaml:"doctrees_dir,omitempty"`
	Binary        string   `yaml:"binary,omitempty"`
	Jobs          int      `yaml:"jobs,omitempty"`
	FailOnWarning bool     `yaml:"fail_on_warning,omitempty"`
	ExtraArgs     []string `yaml:"extra_args,omitempty"`
	// StatePath is the sqlite database recording build events. Defaults to
	// a file inside the build directory so `clean` removes it too.
	StatePath string `yaml:"state_path,omitempty"`
}

// PreviewConfig controls the local preview server.
type PreviewConfig struct {
	Port       int `yaml:"port,omitempty"`
	DebounceMS int `yaml:"debounce_ms,omitempty"`
}

// DaemonConfig controls the long-running rebuild mode.
type DaemonConfig struct {
	Interval    string `yaml:"interval,omitempty"` // Go duration string
	Listen      string `yaml:"listen,omitempty"`
	MetricsPath string `yaml:"metrics_path,omitempty"`
}

// EventsConfig controls build event publication over NATS.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LinkcheckConfig controls offline link verification of built HTML.
type LinkcheckConfig struct {
	// External enables HTTP checking of off-site links.
	External bool `yaml:"external,omitempty"`
	// CacheBucket is the NATS JetStream KV bucket caching external results.
	// Empty disables the cache even when External is set.
	CacheBucket string `yaml:"cache_bucket,omitempty"`
	NATSURL     string `yaml:"nats_url,omitempty"`
	TimeoutMS   int    `yaml:"timeout_ms,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SourcePath returns a path inside the source tree.
func (c *Config) SourcePath(parts ...string) string {
	return filepath.Join(append([]string{c.Source.Dir}, parts...)...)
}

// BuildPath returns a path inside the build tree.
func (c *Config) BuildPath(parts ...string) string {
	return filepath.Join(append([]string{c.Build.Dir}, parts...)...)
}
