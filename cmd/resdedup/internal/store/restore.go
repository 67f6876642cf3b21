package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/manifest"
	"github.com/plugindist/resdedup/internal/log"
)

// Restore reconstructs the file layout of version v into destDir the way the
// installer does: every row listing v is copied from storeDir to its target
// file name. It returns the restored file names in manifest order.
//
// destDir is created if needed. Existing files with the same names are
// overwritten; other files are left alone.
func Restore(m *manifest.Manifest, storeDir string, v dedup.VersionID, destDir string) ([]string, error) {
	rows := m.ForVersion(v)
	if len(rows) == 0 {
		return nil, dedup.NewMissingInputError(fmt.Sprintf("manifest has no resources for version %s", v))
	}

	targets := make(map[string]string, len(rows))
	for _, r := range rows {
		if err := ValidateName(r.Filename); err != nil {
			return nil, dedup.Invariantf("row %s: target %s", r.ResourceName, err)
		}
		if err := ValidateName(r.ResourceName); err != nil {
			return nil, dedup.Invariantf("row %s", err)
		}
		if prev, dup := targets[r.Filename]; dup {
			return nil, dedup.Invariantf("version %s: %s is provided by both %s and %s", v, r.Filename, prev, r.ResourceName)
		}
		targets[r.Filename] = r.ResourceName
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, dedup.NewIOError("mkdir", destDir, err)
	}

	logger := log.Component("restore")
	restored := make([]string, 0, len(rows))
	for _, r := range rows {
		src := filepath.Join(storeDir, r.ResourceName)
		dst := filepath.Join(destDir, r.Filename)
		if err := os.Remove(dst); err != nil && !isNotExist(err) {
			return nil, dedup.NewIOError("remove", dst, err)
		}
		if err := copyFile(src, dst, io.Discard); err != nil {
			if isNotExist(err) {
				return nil, dedup.NewMissingInputError(fmt.Sprintf("resource %s is missing from %s", r.ResourceName, storeDir))
			}
			return nil, err
		}
		logger.Debug("restored file", "version", v, "file", r.Filename, "resource", r.ResourceName)
		restored = append(restored, r.Filename)
	}

	logger.Info("version restored", "version", v, "files", len(restored), "dest", destDir)
	return restored, nil
}
