package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Project: ProjectConfig{
			Name:       "My Project",
			Author:     "The Project Developers",
			PackageDir: "/usr/lib/python3/dist-packages/myproject",
			RepoDir:    ".",
		},
		Source: SourceConfig{
			Dir:       "source",
			DemoGlobs: []string{"../demo/*.py", "../examples/*/*.py"},
			Pages: []MarkdownPage{
				{Source: "../README.md", Target: "readme.rst"},
			},
			Registries: []Registry{
				{Path: "registries/field_documentation.yaml", Output: "field_documentation.rst"},
				{Path: "registries/model_options.yaml", Output: "model_options.rst"},
			},
			Exclude: []string{"*_test.py", "conftest.py"},
		},
		Build: BuildConfig{
			Dir:  "build",
			Jobs: 0,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
