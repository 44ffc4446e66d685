//go:build linux

// link.go implements the 'fuzzrt link' command.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"

	"github.com/kolkov/fuzzrt/fuzz"
)

// runtimeModulePath is the module instrumented targets must require so the
// runtime entry points resolve at build time.
const runtimeModulePath = "github.com/kolkov/fuzzrt"

// linkCommand ensures a target module's go.mod requires the fuzzing
// runtime. The instrumentation pass inserts calls into the target's source;
// this command wires up the module graph so those calls build.
//
// Example:
//
//	fuzzrt link ./path/to/target
func linkCommand(args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	modPath, err := findGoMod(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := addRuntimeRequire(modPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("linked %s v%s into %s\n", runtimeModulePath, fuzz.Version, modPath)
}

// findGoMod walks up from dir looking for the target module's go.mod.
func findGoMod(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		dir = parent
	}
}

// addRuntimeRequire parses the go.mod, adds (or updates) the runtime
// requirement, and writes the file back preserving its formatting.
func addRuntimeRequire(modPath string) error {
	data, err := os.ReadFile(modPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", modPath, err)
	}

	mf, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return fmt.Errorf("parse %s: %w", modPath, err)
	}

	if mf.Module != nil && mf.Module.Mod.Path == runtimeModulePath {
		return fmt.Errorf("%s is the runtime module itself", modPath)
	}

	if err := mf.AddRequire(runtimeModulePath, "v"+fuzz.Version); err != nil {
		return fmt.Errorf("add require: %w", err)
	}
	mf.Cleanup()

	out, err := mf.Format()
	if err != nil {
		return fmt.Errorf("format %s: %w", modPath, err)
	}
	if err := os.WriteFile(modPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", modPath, err)
	}
	return nil
}
