// Package kinds provides the shared mapping from artifact kinds to file
// name patterns.
//
// # Single Source of Truth
//
// Every component that decides whether a file in a version directory is an
// artifact uses this package: the inventory builder when listing files and
// the config layer when validating kind names.
//
// Patterns use doublestar glob syntax and are matched case-insensitively
// against base names only, never against paths:
//
//	set, _ := kinds.NewPatternSet([]string{"dotnet"}, []string{"*.{json,xml}"})
//	if set.Match("revit-ballet.dll") {
//	    // artifact
//	}
package kinds

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/plugindist/resdedup/pkg/util"
)

// Patterns maps kind names to base-name globs.
var Patterns = map[string][]string{
	"dotnet":         {"*.dll"},
	"dotnet-symbols": {"*.pdb"},
	"native":         {"*.dll", "*.so", "*.dylib"},
	"config":         {"*.json", "*.xml", "*.addin"},
}

// DefaultKinds is used when neither kinds nor patterns are configured.
var DefaultKinds = []string{"dotnet"}

// IgnoredDirs contains directory name prefixes skipped when discovering
// version directories.
var IgnoredDirs = []string{
	".",    // Hidden directories
	"temp", // Scratch output of the upstream build
	"tmp",
	"obj", // MSBuild intermediate output
}

// Names returns the known kind names, sorted.
func Names() []string {
	return util.SortedKeys(Patterns)
}

// IsIgnoredDir reports whether a directory name starts with an ignored prefix.
func IsIgnoredDir(name string) bool {
	for _, prefix := range IgnoredDirs {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// PatternSet is a validated, deduplicated set of base-name globs.
type PatternSet struct {
	patterns []string
	folded   []string // lowercased patterns used for matching
}

// NewPatternSet combines the patterns of kinds with extra patterns. When
// both are empty DefaultKinds is used.
func NewPatternSet(kinds, extra []string) (*PatternSet, error) {
	if len(kinds) == 0 && len(extra) == 0 {
		kinds = DefaultKinds
	}

	var patterns []string
	for _, kind := range kinds {
		ps, ok := Patterns[kind]
		if !ok {
			return nil, fmt.Errorf("unknown artifact kind %q (known: %s)", kind, strings.Join(Names(), ", "))
		}
		patterns = append(patterns, ps...)
	}
	for _, p := range extra {
		if err := ValidatePattern(p); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}

	slices.Sort(patterns)
	patterns = slices.Compact(patterns)
	folded := make([]string, len(patterns))
	for i, p := range patterns {
		folded[i] = strings.ToLower(p)
	}
	return &PatternSet{patterns: patterns, folded: folded}, nil
}

// ValidatePattern checks that p is a well-formed glob over base names.
func ValidatePattern(p string) error {
	if p == "" {
		return fmt.Errorf("empty artifact pattern")
	}
	if strings.ContainsAny(p, `/\`) {
		return fmt.Errorf("artifact pattern %q must match file names, not paths", p)
	}
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid artifact pattern %q", p)
	}
	return nil
}

// Match reports whether name matches any pattern in the set, ignoring case.
// Artifacts come from Windows builds where Foo.DLL and foo.dll are the same
// kind of file.
func (s *PatternSet) Match(name string) bool {
	if s == nil {
		return false
	}
	name = strings.ToLower(name)
	for _, p := range s.folded {
		// Patterns were validated in NewPatternSet.
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Patterns returns the sorted patterns in the set.
func (s *PatternSet) Patterns() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.patterns)
}

// String joins the patterns for display.
func (s *PatternSet) String() string {
	return strings.Join(s.Patterns(), ",")
}
