package detect_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/detect"
)

func TestVersions_Empty(t *testing.T) {
	tmpDir := t.TempDir()

	dirs, err := detect.Versions(tmpDir, nil)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if len(dirs) != 0 {
		t.Errorf("Versions() = %v, want empty", dirs)
	}
}

func TestVersions_SortedAndFiltered(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"2026", "2017", "2020", "temp", "202", "latest", ".cache"} {
		createDir(t, tmpDir, name)
	}
	// A file with a version-like name is not a version directory.
	if err := os.WriteFile(filepath.Join(tmpDir, "2019"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := detect.Versions(tmpDir, nil)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}

	want := []dedup.VersionID{"2017", "2020", "2026"}
	if len(dirs) != len(want) {
		t.Fatalf("Versions() = %v, want %v", dirs, want)
	}
	for i, d := range dirs {
		if d.Version != want[i] {
			t.Errorf("dirs[%d].Version = %s, want %s", i, d.Version, want[i])
		}
		if d.Path != filepath.Join(tmpDir, string(want[i])) {
			t.Errorf("dirs[%d].Path = %s", i, d.Path)
		}
	}
}

func TestVersions_CustomPattern(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"v10", "v9", "2024"} {
		createDir(t, tmpDir, name)
	}

	dirs, err := detect.Versions(tmpDir, regexp.MustCompile(`^v\d+$`))
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if len(dirs) != 2 || dirs[0].Version != "v10" || dirs[1].Version != "v9" {
		t.Errorf("Versions() = %v, want [v10 v9]", dirs)
	}
}

func TestVersions_MissingRoot(t *testing.T) {
	_, err := detect.Versions(filepath.Join(t.TempDir(), "missing"), nil)
	if !errors.Is(err, dedup.ErrMissingInput) {
		t.Errorf("Versions() error = %v, want missing input", err)
	}
}

func TestParseVersionDirs(t *testing.T) {
	dirs, err := detect.ParseVersionDirs(map[string]string{
		"2022": "/out/b",
		"2021": "/out/a",
	})
	if err != nil {
		t.Fatalf("ParseVersionDirs() error = %v", err)
	}
	if len(dirs) != 2 || dirs[0].Version != "2021" || dirs[1].Path != "/out/b" {
		t.Errorf("ParseVersionDirs() = %v", dirs)
	}
	if !detect.HasVersion(dirs, "2022") || detect.HasVersion(dirs, "2023") {
		t.Error("HasVersion() mismatch")
	}

	if _, err := detect.ParseVersionDirs(map[string]string{"2021": ""}); err == nil {
		t.Error("ParseVersionDirs() expected error for empty path")
	}
}

func createDir(t *testing.T, root, name string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
		t.Fatal(err)
	}
}
