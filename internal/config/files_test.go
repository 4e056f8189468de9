package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveSourceSetsWithGlobAndExtraFiles(t *testing.T) {
	root := t.TempDir()
	rtlDir := filepath.Join(root, "rtl")
	simDir := filepath.Join(root, "sim")
	if err := os.MkdirAll(rtlDir, 0o755); err != nil {
		t.Fatalf("mkdir rtl: %v", err)
	}
	if err := os.MkdirAll(simDir, 0o755); err != nil {
		t.Fatalf("mkdir sim: %v", err)
	}

	core := filepath.Join(rtlDir, "core.v")
	tb := filepath.Join(simDir, "tb_core.v")
	notes := filepath.Join(simDir, "notes.txt")
	if err := os.WriteFile(core, []byte("module core; endmodule"), 0o644); err != nil {
		t.Fatalf("write core: %v", err)
	}
	if err := os.WriteFile(tb, []byte("module tb_core; endmodule"), 0o644); err != nil {
		t.Fatalf("write tb: %v", err)
	}
	if err := os.WriteFile(notes, []byte("not verilog"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	cfg := Config{
		SourceSets: map[string]SourceSetConfig{
			"rtl": {Files: []string{"rtl/*.v"}},
		},
		ExtraFiles: []FileEntry{
			{File: "sim/tb_core.v", Set: "sim"},
			{File: "sim/notes.txt", Set: "sim"},
		},
	}

	sets, err := cfg.ResolveSourceSets(root)
	if err != nil {
		t.Fatalf("ResolveSourceSets: %v", err)
	}

	rtlFiles := findSet(t, sets, "rtl")
	if !containsPath(rtlFiles, core) {
		t.Fatalf("expected rtl set to include %s, got %v", core, rtlFiles)
	}

	simFiles := findSet(t, sets, "sim")
	if !containsPath(simFiles, tb) {
		t.Fatalf("expected sim set to include %s, got %v", tb, simFiles)
	}
	if containsPath(simFiles, notes) {
		t.Fatalf("non-Verilog extra file leaked into sim set: %v", simFiles)
	}
}

func TestResolveSourceSetsExcludePattern(t *testing.T) {
	root := t.TempDir()
	rtlDir := filepath.Join(root, "rtl")
	if err := os.MkdirAll(rtlDir, 0o755); err != nil {
		t.Fatalf("mkdir rtl: %v", err)
	}

	core := filepath.Join(rtlDir, "core.v")
	gen := filepath.Join(rtlDir, "core_gen.v")
	if err := os.WriteFile(core, []byte("module core; endmodule"), 0o644); err != nil {
		t.Fatalf("write core: %v", err)
	}
	if err := os.WriteFile(gen, []byte("module core_gen; endmodule"), 0o644); err != nil {
		t.Fatalf("write gen: %v", err)
	}

	cfg := Config{
		SourceSets: map[string]SourceSetConfig{
			"rtl": {Files: []string{"rtl/*.v"}, Exclude: []string{"rtl/*_gen.v"}},
		},
	}

	sets, err := cfg.ResolveSourceSets(root)
	if err != nil {
		t.Fatalf("ResolveSourceSets: %v", err)
	}
	rtlFiles := findSet(t, sets, "rtl")
	if !containsPath(rtlFiles, core) {
		t.Fatalf("expected rtl set to include %s, got %v", core, rtlFiles)
	}
	if containsPath(rtlFiles, gen) {
		t.Fatalf("excluded file leaked into rtl set: %v", rtlFiles)
	}
}

func TestAllFilesDeduplicatesAcrossSets(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "shared.v"), []byte("module shared; endmodule"), 0o644); err != nil {
		t.Fatalf("write shared: %v", err)
	}

	cfg := Config{
		SourceSets: map[string]SourceSetConfig{
			"a": {Files: []string{"*.v"}},
			"b": {Files: []string{"*.v"}},
		},
	}

	files, err := cfg.AllFiles(root)
	if err != nil {
		t.Fatalf("AllFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one deduplicated file, got %v", files)
	}
}

func findSet(t *testing.T, sets []ResolvedSourceSet, name string) []string {
	t.Helper()
	for _, s := range sets {
		if s.Name == name {
			return s.Files
		}
	}
	t.Fatalf("source set %s not found", name)
	return nil
}

func containsPath(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}
