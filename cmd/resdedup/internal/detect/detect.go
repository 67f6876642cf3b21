// Package detect discovers version directories in upstream build output.
//
// # Discovery Algorithm
//
// Discovery is DETERMINISTIC: given the same directory contents it always
// returns the same list.
//
//  1. Read the immediate children of the source root
//  2. Keep directories whose names match the version pattern, skipping
//     names with an ignored prefix (see kinds.IgnoredDirs)
//  3. Sort by dedup.CompareVersions
//
// A missing source root is a MissingInputError: the upstream build has not
// run yet.
package detect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/kinds"
)

// DefaultVersionPattern matches four-digit release years.
const DefaultVersionPattern = `^\d{4}$`

// Versions lists the version directories under root.
func Versions(root string, pattern *regexp.Regexp) ([]dedup.VersionDir, error) {
	if pattern == nil {
		pattern = regexp.MustCompile(DefaultVersionPattern)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dedup.NewMissingInputError(fmt.Sprintf("build output directory %s does not exist", root))
		}
		return nil, dedup.NewIOError("read directory", root, err)
	}

	var dirs []dedup.VersionDir
	for _, e := range entries {
		name := e.Name()
		if kinds.IsIgnoredDir(name) || !pattern.MatchString(name) {
			continue
		}
		isDir := e.IsDir()
		if !isDir && e.Type()&fs.ModeSymlink != 0 {
			// Follow symlinked version directories.
			info, err := os.Stat(filepath.Join(root, name))
			if err != nil {
				return nil, dedup.NewIOError("stat", filepath.Join(root, name), err)
			}
			isDir = info.IsDir()
		}
		if !isDir {
			continue
		}
		dirs = append(dirs, dedup.VersionDir{
			Version: dedup.VersionID(name),
			Path:    filepath.Join(root, name),
		})
	}

	slices.SortFunc(dirs, func(a, b dedup.VersionDir) int {
		return dedup.CompareVersions(a.Version, b.Version)
	})
	return dirs, nil
}

// ParseVersionDirs parses explicit "version=path" pairs, as given on the
// command line. The result is sorted by version.
func ParseVersionDirs(pairs map[string]string) ([]dedup.VersionDir, error) {
	dirs := make([]dedup.VersionDir, 0, len(pairs))
	for version, path := range pairs {
		version = strings.TrimSpace(version)
		if version == "" {
			return nil, fmt.Errorf("empty version in directory mapping for %q", path)
		}
		if path == "" {
			return nil, fmt.Errorf("empty path for version %s", version)
		}
		dirs = append(dirs, dedup.VersionDir{Version: dedup.VersionID(version), Path: path})
	}
	slices.SortFunc(dirs, func(a, b dedup.VersionDir) int {
		return dedup.CompareVersions(a.Version, b.Version)
	})
	return dirs, nil
}

// HasVersion reports whether dirs contains version v.
func HasVersion(dirs []dedup.VersionDir, v dedup.VersionID) bool {
	return slices.ContainsFunc(dirs, func(d dedup.VersionDir) bool {
		return d.Version == v
	})
}
