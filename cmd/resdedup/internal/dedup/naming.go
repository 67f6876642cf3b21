package dedup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/pkg/util"
)

// CommonAnchor is the anchor used for files identical in every version.
const CommonAnchor = "common"

// Scope describes how widely a resource is shared.
type Scope int

const (
	// ScopeCommon resources are identical in every version.
	ScopeCommon Scope = iota
	// ScopeShared resources are shared by more than one, but not all, versions.
	ScopeShared
	// ScopeUnique resources belong to exactly one version.
	ScopeUnique
)

func (s Scope) String() string {
	switch s {
	case ScopeCommon:
		return "common"
	case ScopeShared:
		return "shared"
	case ScopeUnique:
		return "unique"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is one physical resource in the output store.
type Entry struct {
	ResourceName string             `json:"resource" yaml:"resource"`
	Filename     string             `json:"filename" yaml:"filename"`
	Digest       fingerprint.Digest `json:"digest" yaml:"digest"`
	Size         uint64             `json:"size" yaml:"size"`
	Versions     []VersionID        `json:"versions" yaml:"versions"`
	Source       string             `json:"source" yaml:"source"`
	Scope        Scope              `json:"scope" yaml:"scope"`
}

// ResourceName names a resource holding filename for versions, given the
// total number of versions in the run:
//
//	all versions      _common.<filename>
//	one version       _<version>.<filename>
//	some versions     _<smallest version>.<filename>
//
// The smallest version anchors partially shared files, so the same inputs
// always produce the same name.
func ResourceName(filename string, versions []VersionID, total int) (string, Scope) {
	switch {
	case len(versions) == total:
		return "_" + CommonAnchor + "." + filename, ScopeCommon
	case len(versions) == 1:
		return "_" + string(versions[0]) + "." + filename, ScopeUnique
	default:
		anchor := slices.MinFunc(versions, CompareVersions)
		return "_" + string(anchor) + "." + filename, ScopeShared
	}
}

// ResolveNames assigns a resource name to every class. The result is sorted
// by resource name. A name produced twice is an InvariantViolationError; one
// resource never silently replaces another.
func ResolveNames(groups map[string][]Class, total int) ([]Entry, error) {
	if total <= 0 {
		return nil, Invariantf("cannot name resources for %d versions", total)
	}

	owners := make(map[string]Class)
	var entries []Entry
	for _, filename := range util.SortedKeys(groups) {
		for _, c := range groups[filename] {
			if len(c.Versions) == 0 || len(c.Versions) > total {
				return nil, Invariantf("%s: class has %d versions out of %d", filename, len(c.Versions), total)
			}
			name, scope := ResourceName(c.Filename, c.Versions, total)
			if prev, dup := owners[name]; dup {
				return nil, Invariantf("resource name %s assigned to both %s [%s] and %s [%s]",
					name, prev.Filename, JoinVersions(prev.Versions, ","), c.Filename, JoinVersions(c.Versions, ","))
			}
			owners[name] = c
			entries = append(entries, Entry{
				ResourceName: name,
				Filename:     c.Filename,
				Digest:       c.Digest,
				Size:         c.Size,
				Versions:     slices.Clone(c.Versions),
				Source:       c.Representative,
				Scope:        scope,
			})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.ResourceName, b.ResourceName)
	})
	return entries, nil
}
