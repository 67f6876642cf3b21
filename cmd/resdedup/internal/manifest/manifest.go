// Package manifest reads and writes the file mapping consumed by the
// installer.
//
// The format is line-oriented UTF-8 text. Lines starting with '#' are
// comments; every other non-blank line is a row:
//
//	ResourceName|TargetFileName|Version,Version,...
//
// Rows are sorted by resource name and versions within a row are sorted, so
// identical inputs always encode to identical bytes. Field order and
// delimiters are the installer contract and must not change.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/pkg/util"
)

const (
	// FieldSeparator separates the three fields of a row.
	FieldSeparator = "|"

	// VersionSeparator separates versions inside the third field.
	VersionSeparator = ","

	// DefaultFileName is the manifest name inside the resource store.
	DefaultFileName = "file-mapping.txt"
)

// Row maps one stored resource to the file it restores and the versions it
// applies to.
type Row struct {
	ResourceName string
	Filename     string
	Versions     []dedup.VersionID
}

// Has reports whether the row applies to version v.
func (r Row) Has(v dedup.VersionID) bool {
	return slices.Contains(r.Versions, v)
}

func (r Row) String() string {
	return r.ResourceName + FieldSeparator + r.Filename + FieldSeparator + dedup.JoinVersions(r.Versions, VersionSeparator)
}

// Manifest is an ordered set of rows.
type Manifest struct {
	Rows []Row
}

// FromEntries builds a manifest from resolved entries.
func FromEntries(entries []dedup.Entry) *Manifest {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		versions := slices.Clone(e.Versions)
		dedup.SortVersions(versions)
		rows = append(rows, Row{
			ResourceName: e.ResourceName,
			Filename:     e.Filename,
			Versions:     versions,
		})
	}
	m := &Manifest{Rows: rows}
	m.sort()
	return m
}

func (m *Manifest) sort() {
	slices.SortFunc(m.Rows, func(a, b Row) int {
		return strings.Compare(a.ResourceName, b.ResourceName)
	})
}

// Len returns the number of rows.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Rows)
}

// Lookup returns the row stored under resourceName.
func (m *Manifest) Lookup(resourceName string) (Row, bool) {
	i, found := slices.BinarySearchFunc(m.Rows, resourceName, func(r Row, name string) int {
		return strings.Compare(r.ResourceName, name)
	})
	if !found {
		return Row{}, false
	}
	return m.Rows[i], true
}

// ForVersion returns the rows an installer extracts for version v, in
// manifest order.
func (m *Manifest) ForVersion(v dedup.VersionID) []Row {
	if m == nil {
		return nil
	}
	var out []Row
	for _, r := range m.Rows {
		if r.Has(v) {
			out = append(out, r)
		}
	}
	return out
}

// Versions returns every version named by any row, sorted.
func (m *Manifest) Versions() []dedup.VersionID {
	seen := make(map[dedup.VersionID]struct{})
	for _, r := range m.Rows {
		for v := range util.Set(r.Versions) {
			seen[v] = struct{}{}
		}
	}
	return util.SortedKeysFunc(seen, dedup.CompareVersions)
}

// Encode writes the header and all rows to w.
func (m *Manifest) Encode(w io.Writer, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s - File Mapping\n", title)
	fmt.Fprintf(bw, "# Format: ResourceName%sTargetFileName%sVersions (comma-separated)\n", FieldSeparator, FieldSeparator)
	bw.WriteString("# This file is used by the installer to know which files to extract for each version\n")
	bw.WriteString("\n")
	for _, r := range m.Rows {
		bw.WriteString(r.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Bytes returns the encoded manifest.
func (m *Manifest) Bytes(title string) []byte {
	var buf bytes.Buffer
	_ = m.Encode(&buf, title) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

// WriteFile writes the manifest to path atomically.
func (m *Manifest) WriteFile(path, title string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dedup.NewIOError("mkdir", filepath.Dir(path), err)
	}

	// Write to temp file first for atomic update
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, m.Bytes(title), 0o644); err != nil {
		return dedup.NewIOError("write", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return dedup.NewIOError("rename", path, err)
	}
	return nil
}

// Parse reads a manifest. Comments and blank lines are skipped. Rows are
// returned sorted by resource name; a resource name listed twice is an
// error.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	seen := make(map[string]int)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, FieldSeparator)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields separated by %q, got %d", lineNo, FieldSeparator, len(fields))
		}
		name, filename, list := fields[0], fields[1], fields[2]
		if name == "" || filename == "" {
			return nil, fmt.Errorf("line %d: empty resource or file name", lineNo)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("line %d: resource %s already listed on line %d", lineNo, name, prev)
		}
		seen[name] = lineNo

		var versions []dedup.VersionID
		for _, v := range strings.Split(list, VersionSeparator) {
			if v == "" {
				return nil, fmt.Errorf("line %d: empty version in %q", lineNo, list)
			}
			versions = append(versions, dedup.VersionID(v))
		}
		dedup.SortVersions(versions)
		m.Rows = append(m.Rows, Row{ResourceName: name, Filename: filename, Versions: versions})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m.sort()
	return m, nil
}

// ReadFile parses the manifest at path. A missing file is a
// MissingInputError.
func ReadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, dedup.NewMissingInputError(fmt.Sprintf("manifest %s does not exist", path))
	}
	if err != nil {
		return nil, dedup.NewIOError("open", path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
