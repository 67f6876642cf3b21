package dedup

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Stats summarizes the space saved by a plan. Shared counts resources used
// by more than one version; Common counts those used by all of them.
type Stats struct {
	Versions    int `json:"versions" yaml:"versions"`
	Occurrences int `json:"occurrences" yaml:"occurrences"`
	Resources   int `json:"resources" yaml:"resources"`
	Shared      int `json:"shared" yaml:"shared"`
	Common      int `json:"common" yaml:"common"`

	OriginalBytes uint64 `json:"original_bytes" yaml:"original_bytes"`
	DedupedBytes  uint64 `json:"deduplicated_bytes" yaml:"deduplicated_bytes"`
	SavedBytes    uint64 `json:"saved_bytes" yaml:"saved_bytes"`
}

// ComputeStats tallies entries for a run over the given number of versions.
func ComputeStats(versions int, entries []Entry) Stats {
	s := Stats{Versions: versions, Resources: len(entries)}
	for _, e := range entries {
		n := uint64(len(e.Versions))
		s.Occurrences += len(e.Versions)
		s.OriginalBytes += e.Size * n
		s.DedupedBytes += e.Size
		if n > 1 {
			s.Shared++
		}
		if e.Scope == ScopeCommon {
			s.Common++
		}
	}
	s.SavedBytes = s.OriginalBytes - s.DedupedBytes
	return s
}

// SavedPercent returns SavedBytes as a percentage of OriginalBytes.
func (s Stats) SavedPercent() float64 {
	if s.OriginalBytes == 0 {
		return 0
	}
	return float64(s.SavedBytes) / float64(s.OriginalBytes) * 100
}

// String renders the summary printed after a run.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Versions:            %d\n", s.Versions)
	fmt.Fprintf(&b, "Files:               %d\n", s.Occurrences)
	fmt.Fprintf(&b, "Resources:           %d (%d shared, %d common)\n", s.Resources, s.Shared, s.Common)
	fmt.Fprintf(&b, "Total original size: %s\n", humanize.IBytes(s.OriginalBytes))
	fmt.Fprintf(&b, "Deduplicated size:   %s\n", humanize.IBytes(s.DedupedBytes))
	fmt.Fprintf(&b, "Space saved:         %s (%.1f%%)\n", humanize.IBytes(s.SavedBytes), s.SavedPercent())
	return b.String()
}
