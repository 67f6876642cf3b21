// Package inventory builds the per-version inventory of artifact files.
//
// Building happens in two phases. Listing reads every version directory
// and validates the result against the expected versions and required
// files; nothing is hashed until the whole input set is known to be
// complete. Fingerprinting then hashes every listed file in a bounded
// worker pool.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/kinds"
	"github.com/plugindist/resdedup/internal/log"
)

// Options configures a Builder.
type Options struct {
	// Patterns selects artifact files. Nil means kinds.DefaultKinds.
	Patterns *kinds.PatternSet

	// Required lists filenames every version must contain.
	Required []string

	// Expected lists versions that must be present among the input
	// directories.
	Expected []dedup.VersionID

	// Hasher computes digests. Required.
	Hasher fingerprint.Hasher

	// Workers bounds concurrent hashing. Zero means runtime.NumCPU().
	Workers int
}

// Builder lists, validates and fingerprints version directories.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder with the given options.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Hasher == nil {
		return nil, fmt.Errorf("inventory builder requires a hasher")
	}
	if opts.Patterns == nil {
		set, err := kinds.NewPatternSet(nil, nil)
		if err != nil {
			return nil, err
		}
		opts.Patterns = set
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Builder{opts: opts}, nil
}

// File is an artifact found during listing, before it is hashed.
type File struct {
	Version dedup.VersionID
	Name    string
	Path    string
	Size    uint64
}

// Listing is the result of the listing phase.
type Listing struct {
	Versions []dedup.VersionID
	Files    map[dedup.VersionID][]File
}

// Len returns the total number of listed files.
func (l *Listing) Len() int {
	n := 0
	for _, files := range l.Files {
		n += len(files)
	}
	return n
}

// Build lists and validates dirs, then fingerprints every listed file.
// Validation failures are reported before any file is hashed.
func (b *Builder) Build(ctx context.Context, dirs []dedup.VersionDir) (*dedup.Inventory, error) {
	listing, err := b.List(ctx, dirs)
	if err != nil {
		return nil, err
	}
	if err := b.Validate(listing); err != nil {
		return nil, err
	}
	return b.Fingerprint(ctx, listing)
}

// List reads every version directory. Directories that do not exist are
// collected into a single MissingInputError; any other read failure is an
// IOError.
func (b *Builder) List(ctx context.Context, dirs []dedup.VersionDir) (*Listing, error) {
	logger := log.Component("inventory")

	listing := &Listing{Files: make(map[dedup.VersionID][]File, len(dirs))}
	var missing []string
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, dup := listing.Files[dir.Version]; dup {
			return nil, dedup.Invariantf("version %s given more than once", dir.Version)
		}

		files, err := b.listDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, fmt.Sprintf("build directory for version %s does not exist: %s", dir.Version, dir.Path))
			listing.Files[dir.Version] = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Debug("listed version directory", "version", dir.Version, "path", dir.Path, "files", len(files))
		listing.Versions = append(listing.Versions, dir.Version)
		listing.Files[dir.Version] = files
	}
	if len(missing) > 0 {
		return nil, dedup.NewMissingInputError(missing...)
	}

	dedup.SortVersions(listing.Versions)
	return listing, nil
}

func (b *Builder) listDir(dir dedup.VersionDir) ([]File, error) {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, dedup.NewIOError("read directory", dir.Path, err)
	}

	var files []File
	for _, e := range entries {
		if !b.opts.Patterns.Match(e.Name()) {
			continue
		}
		path := filepath.Join(dir.Path, e.Name())

		// Stat rather than Lstat so symlinked artifacts are listed by
		// their target's size.
		info, err := os.Stat(path)
		if err != nil {
			return nil, dedup.NewIOError("stat", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, File{
			Version: dir.Version,
			Name:    e.Name(),
			Path:    path,
			Size:    uint64(info.Size()),
		})
	}

	slices.SortFunc(files, func(a, c File) int {
		return strings.Compare(a.Name, c.Name)
	})
	return files, nil
}

// Validate checks a listing against the builder's expectations and returns
// a MissingInputError describing every problem at once.
func (b *Builder) Validate(listing *Listing) error {
	if listing == nil || len(listing.Versions) == 0 {
		return dedup.NewMissingInputError("no version directories found")
	}

	var problems []string

	var absent []dedup.VersionID
	for _, v := range b.opts.Expected {
		if _, ok := listing.Files[v]; !ok {
			absent = append(absent, v)
		}
	}
	if len(absent) > 0 {
		dedup.SortVersions(absent)
		problems = append(problems, fmt.Sprintf("missing build directories for versions: %s",
			dedup.JoinVersions(absent, ", ")))
	}

	var empty []dedup.VersionID
	for _, v := range listing.Versions {
		if len(listing.Files[v]) == 0 {
			empty = append(empty, v)
		}
	}
	if len(empty) > 0 {
		problems = append(problems, fmt.Sprintf("no files matching %s in versions: %s",
			b.opts.Patterns, dedup.JoinVersions(empty, ", ")))
	}

	for _, name := range b.opts.Required {
		var lacking []dedup.VersionID
		for _, v := range listing.Versions {
			if len(listing.Files[v]) == 0 {
				continue // already reported as empty
			}
			has := slices.ContainsFunc(listing.Files[v], func(f File) bool { return f.Name == name })
			if !has {
				lacking = append(lacking, v)
			}
		}
		if len(lacking) > 0 {
			problems = append(problems, fmt.Sprintf("versions missing %s: %s",
				name, dedup.JoinVersions(lacking, ", ")))
		}
	}

	if len(problems) > 0 {
		return dedup.NewMissingInputError(problems...)
	}
	return nil
}

// Fingerprint hashes every listed file. Work is spread over a bounded pool,
// but each result lands in its listing slot, so the inventory is the same
// no matter how hashing is scheduled. The first failure cancels the rest.
func (b *Builder) Fingerprint(ctx context.Context, listing *Listing) (*dedup.Inventory, error) {
	logger := log.Component("inventory")

	var files []File
	for _, v := range listing.Versions {
		files = append(files, listing.Files[v]...)
	}
	results := make([]dedup.Occurrence, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := b.opts.Hasher.HashFile(f.Path)
			if err != nil {
				return dedup.NewIOError("hash", f.Path, err)
			}
			logger.Debug("hashed file", "version", f.Version, "file", f.Name, "digest", digest.String())
			results[i] = dedup.Occurrence{
				Version:  f.Version,
				Filename: f.Name,
				Digest:   digest,
				Size:     f.Size,
				Path:     f.Path,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inv := dedup.NewInventory(listing.Versions)
	for _, o := range results {
		inv.Add(o)
	}
	inv.Sort()

	logger.Info("inventory complete", "versions", len(inv.Versions), "files", inv.Len(),
		"algorithm", b.opts.Hasher.Algorithm())
	return inv, nil
}
