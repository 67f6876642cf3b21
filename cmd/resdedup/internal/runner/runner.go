// Package runner drives the deduplication pipeline from configuration:
// discover version directories, build the inventory, analyze it, and then
// emit the manifest and place the resources.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/detect"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/inventory"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/kinds"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/manifest"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/store"
	"github.com/plugindist/resdedup/internal/log"
	"github.com/plugindist/resdedup/pkg/config"
)

// Runner runs the pipeline for one configuration.
type Runner struct {
	cfg         *config.Config
	hasher      fingerprint.Hasher
	workers     int
	versionDirs []dedup.VersionDir // explicit directories, bypassing discovery

	patterns  *kinds.PatternSet
	versionRe *regexp.Regexp
	expected  []dedup.VersionID
}

// Option configures a Runner.
type Option func(*Runner)

// WithHasher overrides the hasher built from the configured algorithm.
// Used primarily for testing.
func WithHasher(h fingerprint.Hasher) Option {
	return func(r *Runner) {
		r.hasher = h
	}
}

// WithWorkers overrides the configured worker count.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithVersionDirs uses the given version directories instead of
// discovering them under the source root.
func WithVersionDirs(dirs []dedup.VersionDir) Option {
	return func(r *Runner) {
		r.versionDirs = dirs
	}
}

// New validates cfg and creates a Runner.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, workers: cfg.WorkerCount()}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 0 {
		return nil, fmt.Errorf("invalid configuration: workers must be >= 0, got %d", r.workers)
	}
	if err := r.checkOutputDir(); err != nil {
		return nil, err
	}

	patterns, err := kinds.NewPatternSet(cfg.Source.Kinds, cfg.Source.Patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	r.patterns = patterns

	if r.versionRe, err = cfg.VersionRegexp(); err != nil {
		return nil, err
	}

	if r.hasher == nil {
		algo, err := fingerprint.ParseAlgorithm(cfg.Hash.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		if !algo.CollisionResistant() && !cfg.WeakAllowed() {
			return nil, fmt.Errorf("invalid configuration: %s is not collision-resistant; set hash.allow_weak to use it", algo)
		}
		if r.hasher, err = fingerprint.New(algo); err != nil {
			return nil, err
		}
	}

	for _, v := range cfg.Source.Versions {
		r.expected = append(r.expected, dedup.VersionID(v))
	}
	dedup.SortVersions(r.expected)
	return r, nil
}

// Config returns the configuration the runner was created with.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Hasher returns the hasher used for fingerprinting.
func (r *Runner) Hasher() fingerprint.Hasher {
	return r.hasher
}

// ManifestPath returns the path of the manifest inside the output store.
func (r *Runner) ManifestPath() string {
	return filepath.Join(r.cfg.Output.Dir, r.cfg.Output.Manifest)
}

// Discover returns the version directories to process.
func (r *Runner) Discover() ([]dedup.VersionDir, error) {
	if len(r.versionDirs) > 0 {
		return r.versionDirs, nil
	}
	done := log.Stage("detect", "root", r.cfg.Source.Root)
	dirs, err := detect.Versions(r.cfg.Source.Root, r.versionRe)
	if err != nil {
		return nil, err
	}
	done("versions", len(dirs))
	return dirs, nil
}

// Inventory discovers, lists, validates and fingerprints the input.
func (r *Runner) Inventory(ctx context.Context) (*dedup.Inventory, error) {
	dirs, err := r.Discover()
	if err != nil {
		return nil, err
	}
	b, err := inventory.NewBuilder(inventory.Options{
		Patterns: r.patterns,
		Required: r.cfg.Source.Required,
		Expected: r.expected,
		Hasher:   r.hasher,
		Workers:  r.workers,
	})
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, dirs)
}

// Plan runs the pipeline up to naming without writing anything.
func (r *Runner) Plan(ctx context.Context) (*dedup.Plan, error) {
	inv, err := r.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	done := log.Stage("analyze", "files", inv.Len())
	plan, err := dedup.Analyze(inv)
	if err != nil {
		return nil, err
	}
	done("resources", plan.Stats.Resources, "original_bytes", plan.Stats.OriginalBytes,
		"saved_bytes", plan.Stats.SavedBytes)
	return plan, nil
}

// Result describes a completed build.
type Result struct {
	Plan         *dedup.Plan
	Manifest     *manifest.Manifest
	OutputDir    string
	ManifestPath string
}

// Build runs the whole pipeline and replaces the output store.
func (r *Runner) Build(ctx context.Context) (*Result, error) {
	plan, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}

	done := log.Stage("place", "dir", r.cfg.Output.Dir, "resources", len(plan.Entries))
	m := manifest.FromEntries(plan.Entries)
	w := &store.Writer{Dir: r.cfg.Output.Dir, Hasher: r.hasher, Workers: r.workers}
	extra := map[string][]byte{r.cfg.Output.Manifest: m.Bytes(r.cfg.Output.Title)}
	if err := w.Place(ctx, plan.Entries, extra); err != nil {
		return nil, err
	}

	done("deduplicated_bytes", plan.Stats.DedupedBytes)
	return &Result{
		Plan:         plan,
		Manifest:     m,
		OutputDir:    r.cfg.Output.Dir,
		ManifestPath: r.ManifestPath(),
	}, nil
}

// CheckResult compares the planned manifest with the one on disk.
type CheckResult struct {
	Plan *dedup.Plan

	// Diff is a unified diff from the on-disk manifest to the planned one,
	// empty when they match.
	Diff string
}

// UpToDate reports whether the on-disk manifest matches the plan.
func (c *CheckResult) UpToDate() bool {
	return c.Diff == ""
}

// Check plans a build and diffs its manifest against the existing one. A
// missing manifest diffs as empty.
func (r *Runner) Check(ctx context.Context) (*CheckResult, error) {
	plan, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}
	planned := manifest.FromEntries(plan.Entries).Bytes(r.cfg.Output.Title)

	path := r.ManifestPath()
	current, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, dedup.NewIOError("read", path, err)
	}
	if bytes.Equal(current, planned) {
		return &CheckResult{Plan: plan}, nil
	}

	diff, err := manifest.Diff(current, planned, path, "planned")
	if err != nil {
		return nil, fmt.Errorf("failed to diff manifest: %w", err)
	}
	return &CheckResult{Plan: plan, Diff: diff}, nil
}

// Verify checks the existing output store against a fresh inventory.
func (r *Runner) Verify(ctx context.Context) (*store.Report, error) {
	m, err := manifest.ReadFile(r.ManifestPath())
	if err != nil {
		return nil, err
	}
	inv, err := r.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return store.Verify(ctx, inv, m, r.cfg.Output.Dir, store.VerifyOptions{
		ManifestName: r.cfg.Output.Manifest,
		Hasher:       r.hasher,
		Workers:      r.workers,
	})
}

// Restore reconstructs one version's files from the output store into dest.
func (r *Runner) Restore(version dedup.VersionID, dest string) ([]string, error) {
	m, err := manifest.ReadFile(r.ManifestPath())
	if err != nil {
		return nil, err
	}
	return store.Restore(m, r.cfg.Output.Dir, version, dest)
}
