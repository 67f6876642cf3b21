package runner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
)

// checkOutputDir rejects an output directory that overlaps any input. The
// store is removed and recreated on every build, so it must never contain an
// input directory nor live inside one.
func (r *Runner) checkOutputDir() error {
	out, err := resolvePath(r.cfg.Output.Dir)
	if err != nil {
		return dedup.NewIOError("resolve", r.cfg.Output.Dir, err)
	}

	inputs := []string{r.cfg.Source.Root}
	if len(r.versionDirs) > 0 {
		inputs = inputs[:0]
		for _, d := range r.versionDirs {
			inputs = append(inputs, d.Path)
		}
	}

	for _, in := range inputs {
		src, err := resolvePath(in)
		if err != nil {
			return dedup.NewIOError("resolve", in, err)
		}
		switch {
		case within(out, src):
			return dedup.Invariantf("output directory %s contains input directory %s", r.cfg.Output.Dir, in)
		case within(src, out):
			return dedup.Invariantf("output directory %s is inside input directory %s", r.cfg.Output.Dir, in)
		}
	}
	return nil
}

// resolvePath returns the absolute form of p with symlinks evaluated. The
// path need not exist: the deepest existing ancestor is resolved and the
// remainder appended.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	var rest []string
	dir := abs
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
	}
}

// within reports whether child is parent or lies beneath it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
