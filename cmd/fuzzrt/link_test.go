//go:build linux

// link_test.go tests runtime dependency injection into target modules.
package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGoMod(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "go.mod")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}
	return path
}

// TestFindGoMod tests go.mod discovery from a module subdirectory.
func TestFindGoMod(t *testing.T) {
	root := t.TempDir()
	want := writeGoMod(t, root, "module example.com/target\n\ngo 1.24\n")

	sub := filepath.Join(root, "internal", "deep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := findGoMod(sub)
	if err != nil {
		t.Fatalf("findGoMod(%q): %v", sub, err)
	}
	if got != want {
		t.Errorf("findGoMod(%q) = %q, want %q", sub, got, want)
	}
}

// TestFindGoModMissing tests the error path when no module encloses the
// directory. Uses the filesystem root's tempdir, which has no go.mod above.
func TestFindGoModMissing(t *testing.T) {
	dir := t.TempDir()
	got, err := findGoMod(dir)
	if err == nil {
		// A go.mod above the system temp dir is unusual but possible;
		// only fail if it claims to be inside our empty dir.
		if strings.HasPrefix(got, dir) {
			t.Errorf("findGoMod invented %q inside an empty dir", got)
		}
		t.Logf("found enclosing go.mod at %q", got)
	}
}

// TestAddRuntimeRequire tests that linking adds the runtime requirement
// while preserving the target's existing requires.
func TestAddRuntimeRequire(t *testing.T) {
	dir := t.TempDir()
	path := writeGoMod(t, dir, `module example.com/target

go 1.24

require golang.org/x/sys v0.38.0
`)

	if err := addRuntimeRequire(path); err != nil {
		t.Fatalf("addRuntimeRequire: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back go.mod: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, runtimeModulePath) {
		t.Errorf("go.mod missing runtime require:\n%s", content)
	}
	if !strings.Contains(content, "golang.org/x/sys") {
		t.Errorf("go.mod lost an existing require:\n%s", content)
	}
	if !strings.Contains(content, "module example.com/target") {
		t.Errorf("go.mod lost its module declaration:\n%s", content)
	}
}

// TestAddRuntimeRequireIdempotent tests that linking twice leaves one
// requirement.
func TestAddRuntimeRequireIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeGoMod(t, dir, "module example.com/target\n\ngo 1.24\n")

	if err := addRuntimeRequire(path); err != nil {
		t.Fatalf("first addRuntimeRequire: %v", err)
	}
	if err := addRuntimeRequire(path); err != nil {
		t.Fatalf("second addRuntimeRequire: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back go.mod: %v", err)
	}
	if n := strings.Count(string(data), runtimeModulePath); n != 1 {
		t.Errorf("runtime required %d times, want 1:\n%s", n, data)
	}
}

// TestAddRuntimeRequireSelf tests that the runtime module itself is refused.
func TestAddRuntimeRequireSelf(t *testing.T) {
	dir := t.TempDir()
	path := writeGoMod(t, dir, "module "+runtimeModulePath+"\n\ngo 1.24\n")

	if err := addRuntimeRequire(path); err == nil {
		t.Error("addRuntimeRequire accepted the runtime's own go.mod")
	}
}

// TestAddRuntimeRequireUnparsable tests the error path for a corrupt go.mod.
func TestAddRuntimeRequireUnparsable(t *testing.T) {
	dir := t.TempDir()
	path := writeGoMod(t, dir, "this is not a go.mod\n")

	if err := addRuntimeRequire(path); err == nil {
		t.Error("addRuntimeRequire accepted a corrupt go.mod")
	}
}
