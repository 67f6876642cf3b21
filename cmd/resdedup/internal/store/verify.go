package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/manifest"
	"github.com/plugindist/resdedup/internal/log"
)

// Report is the outcome of Verify.
type Report struct {
	Versions  int      `json:"versions" yaml:"versions"`
	Files     int      `json:"files" yaml:"files"`
	Resources int      `json:"resources" yaml:"resources"`
	Problems  []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// OK reports whether verification found no problems.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// VerifyOptions configures Verify.
type VerifyOptions struct {
	// ManifestName is the manifest file inside the store; it is not a
	// resource.
	ManifestName string

	// Hasher must use the algorithm the inventory was built with.
	Hasher fingerprint.Hasher

	// Workers bounds concurrent hashing. Zero means runtime.NumCPU().
	Workers int
}

// Verify checks that the store at dir, described by m, reproduces inv
// exactly and holds nothing more than it must:
//
//   - every inventoried file resolves to exactly one row for its version,
//     and the stored bytes hash to the original digest
//   - every row names only versions and files present in the inventory
//   - the store holds exactly one file per row, plus the manifest
//
// Problems are collected in the report. The error is reserved for failures
// that stop verification itself.
func Verify(ctx context.Context, inv *dedup.Inventory, m *manifest.Manifest, dir string, opts VerifyOptions) (*Report, error) {
	if opts.Hasher == nil {
		return nil, fmt.Errorf("verify requires a hasher")
	}
	logger := log.Component("verify")
	report := &Report{Versions: len(inv.Versions), Files: inv.Len(), Resources: m.Len()}

	// Rows claimed by each inventoried file.
	type key struct {
		version  dedup.VersionID
		filename string
	}
	claims := make(map[key][]string)
	for _, r := range m.Rows {
		for _, v := range r.Versions {
			if _, ok := inv.Lookup(v, r.Filename); !ok {
				report.addf("%s lists %s for version %s, which has no such file", r.ResourceName, r.Filename, v)
				continue
			}
			k := key{v, r.Filename}
			claims[k] = append(claims[k], r.ResourceName)
		}
	}

	// Expected content of each stored resource.
	expected := make(map[string]dedup.Occurrence)
	for _, v := range inv.Versions {
		for _, o := range inv.Files[v] {
			names := claims[key{v, o.Filename}]
			switch len(names) {
			case 0:
				report.addf("version %s: %s is not in the manifest", v, o.Filename)
				continue
			case 1:
			default:
				report.addf("version %s: %s is provided by %d resources", v, o.Filename, len(names))
				continue
			}
			name := names[0]
			if prev, ok := expected[name]; ok && (prev.Digest != o.Digest || prev.Size != o.Size) {
				report.addf("%s stands for different content in versions %s and %s", name, prev.Version, o.Version)
				continue
			}
			if _, ok := expected[name]; !ok {
				expected[name] = o
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isNotExist(err) {
			return nil, dedup.NewMissingInputError(fmt.Sprintf("store %s does not exist", dir))
		}
		return nil, dedup.NewIOError("read", dir, err)
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name() == opts.ManifestName {
			continue
		}
		if !e.Type().IsRegular() {
			report.addf("unexpected non-regular entry %s in store", e.Name())
			continue
		}
		if _, ok := m.Lookup(e.Name()); !ok {
			report.addf("%s is in the store but not in the manifest", e.Name())
			continue
		}
		present[e.Name()] = true
	}

	var toHash []string
	for _, r := range m.Rows {
		if !present[r.ResourceName] {
			report.addf("%s is in the manifest but missing from the store", r.ResourceName)
			continue
		}
		if _, ok := expected[r.ResourceName]; ok {
			toHash = append(toHash, r.ResourceName)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	mismatched := make([]string, len(toHash))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range toHash {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			digest, err := opts.Hasher.HashFile(path)
			if err != nil {
				return dedup.NewIOError("hash", path, err)
			}
			if want := expected[name]; digest != want.Digest {
				mismatched[i] = fmt.Sprintf("%s does not match %s from version %s", name, want.Filename, want.Version)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, p := range mismatched {
		if p != "" {
			report.Problems = append(report.Problems, p)
		}
	}

	slices.Sort(report.Problems)
	logger.Info("verification complete", "versions", report.Versions, "files", report.Files,
		"resources", report.Resources, "problems", len(report.Problems))
	return report, nil
}
