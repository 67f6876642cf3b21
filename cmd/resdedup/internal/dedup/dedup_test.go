package dedup

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
)

var testHasher, _ = fingerprint.New(fingerprint.SHA256)

// occ builds an occurrence whose digest is derived from content.
func occ(version VersionID, filename, content string) Occurrence {
	return Occurrence{
		Version:  version,
		Filename: filename,
		Digest:   testHasher.HashBytes([]byte(content)),
		Size:     uint64(len(content)),
		Path:     string(version) + "/" + filename,
	}
}

func inventoryOf(versions []VersionID, occs ...Occurrence) *Inventory {
	inv := NewInventory(versions)
	for _, o := range occs {
		inv.Add(o)
	}
	inv.Sort()
	return inv
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b VersionID
		want int
	}{
		{"2020", "2021", -1},
		{"2021", "2020", 1},
		{"2020", "2020", 0},
		{"999", "2020", -1},
		{"0999", "2020", -1},
		{"10", "9", 1},
		{"beta", "alpha", 1},
		{"2020", "beta", -1},
		{"beta", "2020", 1},
		{"07", "7", -1},
	}
	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortVersions(t *testing.T) {
	vs := []VersionID{"2026", "9", "2017", "rc", "100"}
	SortVersions(vs)
	want := []VersionID{"9", "100", "2017", "2026", "rc"}
	if !slices.Equal(vs, want) {
		t.Errorf("SortVersions() = %v, want %v", vs, want)
	}
}

func TestResourceName(t *testing.T) {
	tests := []struct {
		name      string
		versions  []VersionID
		total     int
		want      string
		wantScope Scope
	}{
		{"all versions", []VersionID{"2020", "2021"}, 2, "_common.a.dll", ScopeCommon},
		{"single of many", []VersionID{"2022"}, 3, "_2022.a.dll", ScopeUnique},
		{"subset anchors on smallest", []VersionID{"2021", "2019", "2020"}, 4, "_2019.a.dll", ScopeShared},
		{"single version run", []VersionID{"2020"}, 1, "_common.a.dll", ScopeCommon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, scope := ResourceName("a.dll", tt.versions, tt.total)
			if got != tt.want || scope != tt.wantScope {
				t.Errorf("ResourceName() = %q, %s; want %q, %s", got, scope, tt.want, tt.wantScope)
			}
		})
	}
}

// Two versions, identical a.dll.
func TestAnalyze_FullySharedFile(t *testing.T) {
	inv := inventoryOf([]VersionID{"2020", "2021"},
		occ("2020", "a.dll", "same"),
		occ("2021", "a.dll", "same"),
	)

	plan, err := Analyze(inv)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(plan.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(plan.Entries))
	}
	e := plan.Entries[0]
	if e.ResourceName != "_common.a.dll" {
		t.Errorf("ResourceName = %q, want _common.a.dll", e.ResourceName)
	}
	if !slices.Equal(e.Versions, []VersionID{"2020", "2021"}) {
		t.Errorf("Versions = %v, want [2020 2021]", e.Versions)
	}
	if e.Source != "2020/a.dll" {
		t.Errorf("Source = %q, want the smallest version's file", e.Source)
	}
}

// Three versions, b.dll only in 2022.
func TestAnalyze_FileInOneVersion(t *testing.T) {
	inv := inventoryOf([]VersionID{"2020", "2021", "2022"},
		occ("2020", "main.dll", "m"),
		occ("2021", "main.dll", "m"),
		occ("2022", "main.dll", "m"),
		occ("2022", "b.dll", "only-2022"),
	)

	plan, err := Analyze(inv)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	e := findEntry(t, plan, "_2022.b.dll")
	if !slices.Equal(e.Versions, []VersionID{"2022"}) {
		t.Errorf("Versions = %v, want [2022]", e.Versions)
	}
	if e.Scope != ScopeUnique {
		t.Errorf("Scope = %s, want unique", e.Scope)
	}
}

// c.dll identical in 2020 and 2021, different in 2022.
func TestAnalyze_PartiallySharedFile(t *testing.T) {
	inv := inventoryOf([]VersionID{"2022", "2020", "2021"},
		occ("2022", "c.dll", "new"),
		occ("2021", "c.dll", "old"),
		occ("2020", "c.dll", "old"),
	)

	plan, err := Analyze(inv)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(plan.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(plan.Entries))
	}
	shared := findEntry(t, plan, "_2020.c.dll")
	if !slices.Equal(shared.Versions, []VersionID{"2020", "2021"}) {
		t.Errorf("_2020.c.dll versions = %v, want [2020 2021]", shared.Versions)
	}
	if shared.Scope != ScopeShared {
		t.Errorf("Scope = %s, want shared", shared.Scope)
	}
	unique := findEntry(t, plan, "_2022.c.dll")
	if !slices.Equal(unique.Versions, []VersionID{"2022"}) {
		t.Errorf("_2022.c.dll versions = %v, want [2022]", unique.Versions)
	}
}

func TestAnalyze_EveryVersionDiffers(t *testing.T) {
	versions := []VersionID{"2017", "2018", "2019", "2020"}
	var occs []Occurrence
	for _, v := range versions {
		occs = append(occs, occ(v, "d.dll", "content-"+string(v)))
	}
	plan, err := Analyze(inventoryOf(versions, occs...))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(plan.Entries) != len(versions) {
		t.Fatalf("got %d entries, want %d", len(plan.Entries), len(versions))
	}
	for _, v := range versions {
		findEntry(t, plan, "_"+string(v)+".d.dll")
	}
}

func TestGroup_VersionUnionMatchesPresence(t *testing.T) {
	inv := inventoryOf([]VersionID{"2020", "2021", "2022", "2023"},
		occ("2020", "x.dll", "1"),
		occ("2021", "x.dll", "2"),
		occ("2023", "x.dll", "1"),
	)

	groups, err := Group(inv)
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	var union []VersionID
	for _, c := range groups["x.dll"] {
		union = append(union, c.Versions...)
	}
	SortVersions(union)
	if want := []VersionID{"2020", "2021", "2023"}; !slices.Equal(union, want) {
		t.Errorf("union of class versions = %v, want %v", union, want)
	}
	if len(groups["x.dll"]) != 2 {
		t.Errorf("got %d classes, want 2", len(groups["x.dll"]))
	}
}

func TestGroup_SizeMismatchIsInvariantViolation(t *testing.T) {
	a := occ("2020", "a.dll", "abc")
	b := occ("2021", "a.dll", "abc")
	b.Size = 99

	_, err := Group(inventoryOf([]VersionID{"2020", "2021"}, a, b))
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Group() error = %v, want invariant violation", err)
	}
}

func TestGroup_DuplicateFilenameInVersion(t *testing.T) {
	_, err := Group(inventoryOf([]VersionID{"2020"},
		occ("2020", "a.dll", "1"),
		occ("2020", "a.dll", "2"),
	))
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Group() error = %v, want invariant violation", err)
	}
}

func TestResolveNames_CollisionIsInvariantViolation(t *testing.T) {
	// Dotted version IDs can make "_<version>.<filename>" ambiguous:
	// "_r1.x.dll" is both r1's x.dll and r1.x's dll.
	inv := inventoryOf([]VersionID{"r1", "r1.x"},
		occ("r1", "x.dll", "first"),
		occ("r1.x", "dll", "second"),
	)

	_, err := Analyze(inv)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Analyze() error = %v, want invariant violation", err)
	}
}

func TestResolveNames_Unique(t *testing.T) {
	inv := inventoryOf([]VersionID{"2020", "2021", "2022"},
		occ("2020", "a.dll", "1"), occ("2021", "a.dll", "1"), occ("2022", "a.dll", "2"),
		occ("2020", "b.dll", "1"), occ("2021", "b.dll", "2"), occ("2022", "b.dll", "3"),
		occ("2020", "c.dll", "x"), occ("2021", "c.dll", "x"), occ("2022", "c.dll", "x"),
	)
	plan, err := Analyze(inv)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, e := range plan.Entries {
		if seen[e.ResourceName] {
			t.Errorf("duplicate resource name %s", e.ResourceName)
		}
		seen[e.ResourceName] = true
	}
	if !slices.IsSortedFunc(plan.Entries, func(a, b Entry) int {
		return strings.Compare(a.ResourceName, b.ResourceName)
	}) {
		t.Error("entries are not sorted by resource name")
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	build := func(order []int) *Plan {
		all := []Occurrence{
			occ("2020", "a.dll", "1"), occ("2021", "a.dll", "1"),
			occ("2020", "b.dll", "2"), occ("2021", "b.dll", "3"),
			occ("2021", "c.dll", "4"),
		}
		inv := NewInventory([]VersionID{"2021", "2020"})
		for _, i := range order {
			inv.Add(all[i])
		}
		inv.Sort()
		plan, err := Analyze(inv)
		if err != nil {
			t.Fatal(err)
		}
		return plan
	}

	first := build([]int{0, 1, 2, 3, 4})
	second := build([]int{4, 3, 2, 1, 0})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("plans differ with input order:\n%+v\n%+v", first, second)
	}
}

func TestAnalyze_EmptyInventory(t *testing.T) {
	_, err := Analyze(NewInventory(nil))
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("Analyze() error = %v, want missing input", err)
	}
}

func TestComputeStats(t *testing.T) {
	inv := inventoryOf([]VersionID{"2020", "2021", "2022"},
		occ("2020", "a.dll", "aaaa"), occ("2021", "a.dll", "aaaa"), occ("2022", "a.dll", "aaaa"),
		occ("2020", "b.dll", "bb"), occ("2021", "b.dll", "bb"), occ("2022", "b.dll", "cc"),
	)
	plan, err := Analyze(inv)
	if err != nil {
		t.Fatal(err)
	}
	s := plan.Stats
	if s.OriginalBytes != 18 || s.DedupedBytes != 8 || s.SavedBytes != 10 {
		t.Errorf("bytes = %d/%d/%d, want 18/8/10", s.OriginalBytes, s.DedupedBytes, s.SavedBytes)
	}
	if s.Resources != 3 || s.Shared != 2 || s.Common != 1 || s.Occurrences != 6 {
		t.Errorf("counts = %+v", s)
	}
	if got := s.SavedPercent(); got < 55.5 || got > 55.6 {
		t.Errorf("SavedPercent() = %f, want ~55.6", got)
	}
}

func TestStatsZeroPercent(t *testing.T) {
	if got := (Stats{}).SavedPercent(); got != 0 {
		t.Errorf("SavedPercent() = %f, want 0", got)
	}
}

func TestPlanEntriesFor(t *testing.T) {
	inv := inventoryOf([]VersionID{"2020", "2021"},
		occ("2020", "a.dll", "1"), occ("2021", "a.dll", "1"),
		occ("2021", "b.dll", "2"),
	)
	plan, err := Analyze(inv)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(plan.EntriesFor("2020")); got != 1 {
		t.Errorf("EntriesFor(2020) = %d entries, want 1", got)
	}
	if got := len(plan.EntriesFor("2021")); got != 2 {
		t.Errorf("EntriesFor(2021) = %d entries, want 2", got)
	}
}

func TestErrorClasses(t *testing.T) {
	cause := errors.New("permission denied")
	ioErr := NewIOError("read", "/x", cause)
	if !errors.Is(ioErr, ErrIO) || !errors.Is(ioErr, cause) {
		t.Error("IOError should match ErrIO and its cause")
	}
	if errors.Is(ioErr, ErrMissingInput) {
		t.Error("IOError should not match ErrMissingInput")
	}
	missing := NewMissingInputError("a", "b")
	if missing.Error() != "missing input: a; b" {
		t.Errorf("Error() = %q", missing.Error())
	}
}

func findEntry(t *testing.T, plan *Plan, name string) Entry {
	t.Helper()
	for _, e := range plan.Entries {
		if e.ResourceName == name {
			return e
		}
	}
	t.Fatalf("no entry named %s in %v", name, plan.Entries)
	return Entry{}
}
