// Package store writes and reads the deduplicated resource store: a flat
// directory holding one file per resource plus the manifest.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/internal/log"
)

// Writer places resources into a store directory.
type Writer struct {
	// Dir is the store directory. Its previous contents are replaced.
	Dir string

	// Hasher re-hashes every copied file.
	Hasher fingerprint.Hasher

	// Workers bounds concurrent copies. Zero means runtime.NumCPU().
	Workers int
}

// Place writes one copy of every entry's representative under its resource
// name, plus the extra files (typically the manifest), then replaces Dir
// with the result.
//
// Everything is written to a staging directory next to Dir first. The old
// store is removed and the staging directory renamed into place only after
// every copy has succeeded, so a failed run leaves the previous store as it
// was.
func (w *Writer) Place(ctx context.Context, entries []dedup.Entry, extra map[string][]byte) error {
	logger := log.Component("store")

	if w.Dir == "" {
		return fmt.Errorf("store directory is not set")
	}
	if w.Hasher == nil {
		return fmt.Errorf("store writer requires a hasher")
	}
	if err := checkNames(entries, extra); err != nil {
		return err
	}

	dir := filepath.Clean(w.Dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return dedup.NewIOError("mkdir", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-*")
	if err != nil {
		return dedup.NewIOError("mkdir", parent, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()
	if err := os.Chmod(staging, 0o755); err != nil {
		return dedup.NewIOError("chmod", staging, err)
	}

	workers := w.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dst := filepath.Join(staging, e.ResourceName)
			d := w.Hasher.NewDigester()
			if err := copyFile(e.Source, dst, d); err != nil {
				return err
			}
			digest, size := d.Digest(), d.Size()
			if digest != e.Digest || size != e.Size {
				return dedup.Invariantf("%s changed after fingerprinting: expected %s (%d bytes), copied %s (%d bytes)",
					e.Source, e.Digest, e.Size, digest, size)
			}
			logger.Debug("placed resource", "resource", e.ResourceName, "source", e.Source, "size", size)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for name, data := range extra {
		path := filepath.Join(staging, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return dedup.NewIOError("write", path, err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return dedup.NewIOError("remove", dir, err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return dedup.NewIOError("rename", dir, err)
	}
	committed = true

	logger.Info("store written", "dir", dir, "resources", len(entries), "extra", len(extra))
	return nil
}

// ValidateName reports whether name can be stored as a single file directly
// inside the store directory.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("invalid name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	return nil
}

func checkNames(entries []dedup.Entry, extra map[string][]byte) error {
	seen := make(map[string]bool, len(entries)+len(extra))
	for _, e := range entries {
		if err := ValidateName(e.ResourceName); err != nil {
			return dedup.Invariantf("resource %s", err)
		}
		if seen[e.ResourceName] {
			return dedup.Invariantf("resource %s is placed twice", e.ResourceName)
		}
		seen[e.ResourceName] = true
	}
	for name := range extra {
		if err := ValidateName(name); err != nil {
			return dedup.Invariantf("extra file %s", err)
		}
		if seen[name] {
			return dedup.Invariantf("extra file %s collides with a resource", name)
		}
		seen[name] = true
	}
	return nil
}

// copyFile copies src to a new file dst with the same permission bits. Every
// byte written is also written to sink.
func copyFile(src, dst string, sink io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return dedup.NewIOError("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return dedup.NewIOError("stat", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return dedup.NewIOError("create", dst, err)
	}
	if _, err := io.Copy(io.MultiWriter(out, sink), in); err != nil {
		_ = out.Close()
		return dedup.NewIOError("copy", src, err)
	}
	if err := out.Close(); err != nil {
		return dedup.NewIOError("close", dst, err)
	}
	return nil
}

// isNotExist reports whether err means a file is absent.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
