package config

import (
	"fmt"
	"time"
)

const (
	defaultSourceDir    = "source"
	defaultBuildDir     = "build"
	defaultBinary       = "sphinx-build"
	defaultDemoDir      = "demos"
	defaultAPIDir       = "api"
	defaultGeneratedDir = "generated"
	defaultPreviewPort  = 8000
	defaultDebounceMS   = 400
	defaultInterval     = "30m"
	defaultListen       = ":9180"
	defaultMetricsPath  = "/metrics"
	defaultSubject      = "docforge.build.completed"
	defaultNATSURL      = "nats://127.0.0.1:4222"
	defaultLinkTimeout  = 10000
)

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "Documentation"
	}
	if c.Project.RepoDir == "" {
		c.Project.RepoDir = "."
	}
	if c.Source.Dir == "" {
		c.Source.Dir = defaultSourceDir
	}
	if c.Source.DemoDir == "" {
		c.Source.DemoDir = defaultDemoDir
	}
	if c.Source.APIDir == "" {
		c.Source.APIDir = defaultAPIDir
	}
	if c.Source.GeneratedDir == "" {
		c.Source.GeneratedDir = defaultGeneratedDir
	}
	if c.Build.Dir == "" {
		c.Build.Dir = defaultBuildDir
	}
	if c.Build.DoctreesDir == "" {
		c.Build.DoctreesDir = c.BuildPath("doctrees")
	}
	if c.Build.Binary == "" {
		c.Build.Binary = defaultBinary
	}
	if c.Build.StatePath == "" {
		c.Build.StatePath = c.BuildPath("docforge-state.db")
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = defaultPreviewPort
	}
	if c.Preview.DebounceMS == 0 {
		c.Preview.DebounceMS = defaultDebounceMS
	}
	if c.Daemon.Interval == "" {
		c.Daemon.Interval = defaultInterval
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = defaultListen
	}
	if c.Daemon.MetricsPath == "" {
		c.Daemon.MetricsPath = defaultMetricsPath
	}
	if c.Events.Subject == "" {
		c.Events.Subject = defaultSubject
	}
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = defaultNATSURL
	}
	if c.Linkcheck.NATSURL == "" {
		c.Linkcheck.NATSURL = c.Events.NATSURL
	}
	if c.Linkcheck.TimeoutMS == 0 {
		c.Linkcheck.TimeoutMS = defaultLinkTimeout
	}
}

// Validate checks the configuration for contradictions the build would only
// discover halfway through.
func (c *Config) Validate() error {
	if c.Source.Dir == c.Build.Dir {
		return fmt.Errorf("source and build directories must differ: %s", c.Source.Dir)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("build.jobs must not be negative: %d", c.Build.Jobs)
	}
	if _, err := time.ParseDuration(c.Daemon.Interval); err != nil {
		return fmt.Errorf("invalid daemon.interval %q: %w", c.Daemon.Interval, err)
	}
	for _, p := range c.Source.Pages {
		if p.Source == "" || p.Target == "" {
			return fmt.Errorf("source.pages entries need both source and target")
		}
	}
	for _, r := range c.Source.Registries {
		if r.Path == "" {
			return fmt.Errorf("source.registries entries need a path")
		}
	}
	return nil
}

// RebuildInterval returns the parsed daemon interval. Validate guarantees it
// parses.
func (c *Config) RebuildInterval() time.Duration {
	d, _ := time.ParseDuration(c.Daemon.Interval)
	return d
}

// DebounceInterval returns the preview debounce window.
func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.Preview.DebounceMS) * time.Millisecond
}

// LinkTimeout returns the external link check timeout.
func (c *Config) LinkTimeout() time.Duration {
	return time.Duration(c.Linkcheck.TimeoutMS) * time.Millisecond
}
