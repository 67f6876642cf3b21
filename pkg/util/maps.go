// Package util holds small generic helpers shared across resdedup packages.
package util

import (
	"cmp"
	"maps"
	"slices"
)

// SortedKeys returns the keys of a map in sorted order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// SortedKeysFunc returns the keys of a map ordered by compare.
func SortedKeysFunc[K comparable, V any](m map[K]V, compare func(a, b K) int) []K {
	return slices.SortedFunc(maps.Keys(m), compare)
}

// Set returns the distinct elements of s as a set.
func Set[S ~[]E, E comparable](s S) map[E]struct{} {
	set := make(map[E]struct{}, len(s))
	for _, e := range s {
		set[e] = struct{}{}
	}
	return set
}
