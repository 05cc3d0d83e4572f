// Package config holds the explicit run configuration: platform names,
// root directory, file selection, and worker count. Values come from an
// optional YAML manifest under the root, overridden by environment
// variables and then by flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultManifest is the manifest filename looked up under the root.
const DefaultManifest = ".swiftstrip.yaml"

type Config struct {
	// Platform is the target platform whose guarded blocks are removed.
	Platform string `yaml:"platform"`

	// Counterpart is the platform paired against Platform in if/else
	// splits; the else branch of a counterpart block is treated as
	// target-only code. Optional.
	Counterpart string `yaml:"counterpart"`

	// Root is the directory paths are resolved against.
	Root string `yaml:"root"`

	// Paths lists explicit files to process, relative to Root. When
	// empty, Root is scanned recursively instead.
	Paths []string `yaml:"paths"`

	// Extensions selects candidate files during a scan.
	Extensions []string `yaml:"extensions"`

	// Exclude lists directory names skipped during a scan. Hidden
	// directories are always skipped.
	Exclude []string `yaml:"exclude"`

	// PurgeImports lists module names whose whole-line imports are
	// deleted from processed files.
	PurgeImports []string `yaml:"purge_imports"`

	// Jobs is the number of files processed in parallel.
	Jobs int `yaml:"jobs"`
}

// Default returns the built-in configuration: strip macOS blocks, keep
// iOS code, scan for .swift files, purge AppKit imports.
func Default() *Config {
	jobs := runtime.NumCPU()
	if jobs > 8 {
		jobs = 8
	}
	return &Config{
		Platform:     "macOS",
		Counterpart:  "iOS",
		Root:         ".",
		Extensions:   []string{".swift"},
		PurgeImports: []string{"AppKit"},
		Jobs:         jobs,
	}
}

// Load reads a YAML manifest, layered over the defaults. A missing file
// yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SWIFTSTRIP_PLATFORM"); v != "" {
		c.Platform = v
	}
	if v := os.Getenv("SWIFTSTRIP_COUNTERPART"); v != "" {
		c.Counterpart = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Platform == "" {
		return errors.New("platform must not be empty")
	}
	if c.Counterpart != "" && c.Counterpart == c.Platform {
		return fmt.Errorf("platform and counterpart are both %q", c.Platform)
	}
	if c.Root == "" {
		return errors.New("root must not be empty")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}
