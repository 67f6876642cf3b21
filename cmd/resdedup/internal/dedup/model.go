// Package dedup groups per-version artifact files by content and assigns
// each distinct (filename, content) pair a stable resource name.
//
// The pipeline stages are pure functions over their predecessor's output:
//
//	Inventory -> Group -> ResolveNames -> Plan
//
// Emission and placement of the plan live in the manifest and store
// packages.
package dedup

import (
	"cmp"
	"slices"
	"strings"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
)

// VersionID identifies one build target, e.g. a product year.
type VersionID string

// CompareVersions orders version IDs. Two all-digit IDs compare numerically;
// anything else compares byte-wise. Numeric IDs sort before non-numeric ones
// so that mixed sets still have a total order.
func CompareVersions(a, b VersionID) int {
	an, bn := isDigits(string(a)), isDigits(string(b))
	switch {
	case an && bn:
		x := strings.TrimLeft(string(a), "0")
		y := strings.TrimLeft(string(b), "0")
		if c := cmp.Compare(len(x), len(y)); c != 0 {
			return c
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
		// "07" and "7" are numerically equal but distinct IDs.
		return strings.Compare(string(a), string(b))
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(string(a), string(b))
	}
}

// SortVersions sorts vs in place using CompareVersions.
func SortVersions(vs []VersionID) {
	slices.SortFunc(vs, CompareVersions)
}

// JoinVersions joins version IDs with sep.
func JoinVersions(vs []VersionID, sep string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, sep)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// VersionDir is one input directory of build output.
type VersionDir struct {
	Version VersionID
	Path    string
}

// Occurrence is one physical artifact file found in a version directory.
type Occurrence struct {
	Version  VersionID
	Filename string
	Digest   fingerprint.Digest
	Size     uint64
	Path     string
}

// Inventory holds every occurrence found, keyed by version.
type Inventory struct {
	Versions []VersionID
	Files    map[VersionID][]Occurrence
}

// NewInventory creates an empty inventory for the given versions.
func NewInventory(versions []VersionID) *Inventory {
	vs := slices.Clone(versions)
	SortVersions(vs)
	files := make(map[VersionID][]Occurrence, len(vs))
	for _, v := range vs {
		files[v] = nil
	}
	return &Inventory{Versions: vs, Files: files}
}

// Add records an occurrence under its version.
func (inv *Inventory) Add(o Occurrence) {
	if inv == nil {
		return
	}
	if inv.Files == nil {
		inv.Files = make(map[VersionID][]Occurrence)
	}
	if _, ok := inv.Files[o.Version]; !ok {
		inv.Versions = append(inv.Versions, o.Version)
		SortVersions(inv.Versions)
	}
	inv.Files[o.Version] = append(inv.Files[o.Version], o)
}

// Sort orders each version's occurrences by filename.
func (inv *Inventory) Sort() {
	if inv == nil {
		return
	}
	for _, occs := range inv.Files {
		slices.SortFunc(occs, func(a, b Occurrence) int {
			return strings.Compare(a.Filename, b.Filename)
		})
	}
}

// Len returns the total number of occurrences.
func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	n := 0
	for _, occs := range inv.Files {
		n += len(occs)
	}
	return n
}

// Lookup finds the occurrence of filename in version v.
func (inv *Inventory) Lookup(v VersionID, filename string) (Occurrence, bool) {
	if inv == nil {
		return Occurrence{}, false
	}
	for _, o := range inv.Files[v] {
		if o.Filename == filename {
			return o, true
		}
	}
	return Occurrence{}, false
}
