package dedup

import (
	"slices"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/pkg/util"
)

// Class is the set of versions in which one filename has identical content.
type Class struct {
	Filename string
	Digest   fingerprint.Digest
	Size     uint64

	// Versions is sorted by CompareVersions and never empty.
	Versions []VersionID

	// Representative is the source path of the occurrence in Versions[0].
	Representative string
}

// Group partitions the occurrences of every filename into equivalence
// classes by digest. Classes of one filename are ordered by their smallest
// version.
//
// Two occurrences with the same digest but different sizes, or one filename
// listed twice for the same version, cannot happen with a sound inventory
// and are reported as InvariantViolationError.
func Group(inv *Inventory) (map[string][]Class, error) {
	byName := make(map[string][]Occurrence)
	if inv != nil {
		versions := slices.Clone(inv.Versions)
		SortVersions(versions)
		for _, v := range versions {
			for _, o := range inv.Files[v] {
				byName[o.Filename] = append(byName[o.Filename], o)
			}
		}
	}

	groups := make(map[string][]Class, len(byName))
	for _, filename := range util.SortedKeys(byName) {
		classes, err := partition(filename, byName[filename])
		if err != nil {
			return nil, err
		}
		groups[filename] = classes
	}
	return groups, nil
}

// partition splits occurrences (already in ascending version order) by digest.
func partition(filename string, occs []Occurrence) ([]Class, error) {
	var classes []Class
	index := make(map[fingerprint.Digest]int)
	seen := make(map[VersionID]bool, len(occs))

	for _, o := range occs {
		if seen[o.Version] {
			return nil, Invariantf("%s listed more than once for version %s", filename, o.Version)
		}
		seen[o.Version] = true

		if o.Digest.IsZero() {
			return nil, Invariantf("%s in version %s has no digest", filename, o.Version)
		}

		i, ok := index[o.Digest]
		if !ok {
			index[o.Digest] = len(classes)
			classes = append(classes, Class{
				Filename:       filename,
				Digest:         o.Digest,
				Size:           o.Size,
				Versions:       []VersionID{o.Version},
				Representative: o.Path,
			})
			continue
		}

		c := &classes[i]
		if c.Size != o.Size {
			return nil, Invariantf("%s: digest %s maps to sizes %d (version %s) and %d (version %s)",
				filename, o.Digest, c.Size, c.Versions[0], o.Size, o.Version)
		}
		c.Versions = append(c.Versions, o.Version)
	}

	slices.SortFunc(classes, func(a, b Class) int {
		return CompareVersions(a.Versions[0], b.Versions[0])
	})
	return classes, nil
}
