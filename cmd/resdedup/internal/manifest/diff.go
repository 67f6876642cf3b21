package manifest

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns a unified diff from before to after, or "" when they are
// equal.
func Diff(before, after []byte, beforeName, afterName string) (string, error) {
	if string(before) == string(after) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: beforeName,
		ToFile:   afterName,
		Context:  3,
	})
}
