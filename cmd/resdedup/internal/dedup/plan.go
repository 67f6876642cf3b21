package dedup

import "slices"

// Plan is the complete deduplication result for one run.
type Plan struct {
	Versions []VersionID
	Entries  []Entry
	Stats    Stats
}

// Analyze groups the inventory and names every class.
func Analyze(inv *Inventory) (*Plan, error) {
	if inv == nil || len(inv.Versions) == 0 {
		return nil, NewMissingInputError("no version directories in inventory")
	}

	groups, err := Group(inv)
	if err != nil {
		return nil, err
	}
	entries, err := ResolveNames(groups, len(inv.Versions))
	if err != nil {
		return nil, err
	}

	versions := slices.Clone(inv.Versions)
	SortVersions(versions)
	return &Plan{
		Versions: versions,
		Entries:  entries,
		Stats:    ComputeStats(len(versions), entries),
	}, nil
}

// EntriesFor returns the entries that apply to version v.
func (p *Plan) EntriesFor(v VersionID) []Entry {
	if p == nil {
		return nil
	}
	var out []Entry
	for _, e := range p.Entries {
		if slices.Contains(e.Versions, v) {
			out = append(out, e)
		}
	}
	return out
}
