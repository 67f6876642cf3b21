// Package config provides configuration management for resdedup.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/resdedup/config.toml)
//  3. Project config (.resdedup/config.toml or resdedup.toml), or the file
//     named by --config
//  4. Environment variables (RESDEDUP_*)
//  5. CLI flags (highest priority)
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Config is the main configuration struct for resdedup.
type Config struct {
	// Source describes the upstream per-version build output.
	Source SourceConfig `toml:"source"`

	// Output describes the deduplicated resource store.
	Output OutputConfig `toml:"output"`

	// Hash configures fingerprinting.
	Hash HashConfig `toml:"hash"`
}

// SourceConfig locates and validates the input version directories.
type SourceConfig struct {
	// Root is the directory holding one subdirectory per version.
	Root string `toml:"root"`

	// VersionPattern is a regular expression that subdirectory names must
	// match to be treated as versions.
	VersionPattern string `toml:"version_pattern"`

	// Versions lists the versions that must be present. Empty means
	// whatever is discovered.
	Versions []string `toml:"versions"`

	// Kinds selects artifact pattern presets (e.g., "dotnet").
	Kinds []string `toml:"kinds"`

	// Patterns are additional base-name globs.
	Patterns []string `toml:"patterns"`

	// Required lists filenames every version must contain.
	Required []string `toml:"required"`
}

// OutputConfig locates the resource store and its manifest.
type OutputConfig struct {
	// Dir is the resource store directory. It is rebuilt from scratch on
	// every run.
	Dir string `toml:"dir"`

	// Manifest is the manifest file name inside Dir.
	Manifest string `toml:"manifest"`

	// Title names the product in the manifest header.
	Title string `toml:"title"`
}

// HashConfig configures fingerprinting.
type HashConfig struct {
	// Algorithm is the digest algorithm ("sha256", "blake3", "md5", "xxh64").
	Algorithm string `toml:"algorithm"`

	// Workers bounds concurrent hashing and copying. Zero means one per CPU.
	Workers *int `toml:"workers"`

	// AllowWeak permits algorithms that are not collision-resistant.
	AllowWeak *bool `toml:"allow_weak"`
}

// Defaults.
const (
	DefaultSourceRoot     = "../commands/bin"
	DefaultVersionPattern = `^\d{4}$`
	DefaultOutputDir      = "./bin/resources"
	DefaultManifest       = "file-mapping.txt"
	DefaultTitle          = "Installer"
	DefaultAlgorithm      = "sha256"
)

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	workers := 0
	allowWeak := false
	return &Config{
		Source: SourceConfig{
			Root:           DefaultSourceRoot,
			VersionPattern: DefaultVersionPattern,
			Versions:       []string{},
			Kinds:          []string{},
			Patterns:       []string{},
			Required:       []string{},
		},
		Output: OutputConfig{
			Dir:      DefaultOutputDir,
			Manifest: DefaultManifest,
			Title:    DefaultTitle,
		},
		Hash: HashConfig{
			Algorithm: DefaultAlgorithm,
			Workers:   &workers,
			AllowWeak: &allowWeak,
		},
	}
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Merge source config
	if other.Source.Root != "" {
		c.Source.Root = other.Source.Root
	}
	if other.Source.VersionPattern != "" {
		c.Source.VersionPattern = other.Source.VersionPattern
	}
	if len(other.Source.Versions) > 0 {
		c.Source.Versions = other.Source.Versions
	}
	if len(other.Source.Kinds) > 0 {
		c.Source.Kinds = other.Source.Kinds
	}
	if len(other.Source.Patterns) > 0 {
		c.Source.Patterns = other.Source.Patterns
	}
	if len(other.Source.Required) > 0 {
		c.Source.Required = other.Source.Required
	}

	// Merge output config
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.Manifest != "" {
		c.Output.Manifest = other.Output.Manifest
	}
	if other.Output.Title != "" {
		c.Output.Title = other.Output.Title
	}

	// Merge hash config
	if other.Hash.Algorithm != "" {
		c.Hash.Algorithm = other.Hash.Algorithm
	}
	if other.Hash.Workers != nil {
		c.Hash.Workers = other.Hash.Workers
	}
	if other.Hash.AllowWeak != nil {
		c.Hash.AllowWeak = other.Hash.AllowWeak
	}
}

// VersionRegexp compiles Source.VersionPattern.
func (c *Config) VersionRegexp() (*regexp.Regexp, error) {
	pattern := c.Source.VersionPattern
	if pattern == "" {
		pattern = DefaultVersionPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid version_pattern %q: %w", pattern, err)
	}
	return re, nil
}

// WorkerCount returns the configured worker count (0 = one per CPU).
func (c *Config) WorkerCount() int {
	if c.Hash.Workers == nil {
		return 0
	}
	return *c.Hash.Workers
}

// WeakAllowed reports whether weak digest algorithms are permitted.
func (c *Config) WeakAllowed() bool {
	return c.Hash.AllowWeak != nil && *c.Hash.AllowWeak
}

// Validate checks values that do not depend on the artifact or digest
// registries; those are checked where the registries live.
func (c *Config) Validate() error {
	var problems []string
	if c.Source.Root == "" {
		problems = append(problems, "source.root is empty")
	}
	if _, err := c.VersionRegexp(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Output.Dir == "" {
		problems = append(problems, "output.dir is empty")
	}
	if c.Output.Manifest == "" || strings.ContainsAny(c.Output.Manifest, `/\`) {
		problems = append(problems, fmt.Sprintf("output.manifest %q must be a plain file name", c.Output.Manifest))
	} else if strings.HasPrefix(c.Output.Manifest, "_") {
		problems = append(problems, fmt.Sprintf("output.manifest %q must not start with '_' (reserved for resources)", c.Output.Manifest))
	}
	if strings.ContainsAny(c.Output.Title, "\r\n") {
		problems = append(problems, "output.title must be a single line")
	}
	if c.WorkerCount() < 0 {
		problems = append(problems, fmt.Sprintf("hash.workers must be >= 0, got %d", c.WorkerCount()))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
