package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigEnablesEveryDetector(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.EnableWW || !cfg.EnableRW || !cfg.EnableTR {
		t.Errorf("DefaultConfig should enable all three detectors: %+v", cfg)
	}
	if cfg.Cache.Enabled == nil || !*cfg.Cache.Enabled {
		t.Error("DefaultConfig should enable the cache")
	}
	if cfg.Suppression.Enabled {
		t.Error("DefaultConfig should leave suppression off")
	}
}

func TestDetectOptionsMirrorsConfigSwitches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRW = false
	opts := cfg.DetectOptions()
	if !opts.EnableWW || opts.EnableRW || !opts.EnableTR {
		t.Errorf("DetectOptions() = %+v, want RW disabled only", opts)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vracer.json")
	data, _ := json.Marshal(map[string]any{"enable_tr": false})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.EnableTR {
		t.Error("expected enable_tr=false to be honored")
	}
	if !cfg.EnableWW || !cfg.EnableRW {
		t.Error("unspecified switches should keep their default values")
	}
	if cfg.Cache.Dir != ".vracer_cache" {
		t.Errorf("cache dir should default when unspecified, got %q", cfg.Cache.Dir)
	}
}

func TestLoadFindsConfigInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vracer.json")
	data, _ := json.Marshal(map[string]any{"enable_ww": false})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(oldWD)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EnableWW {
		t.Error("expected enable_ww=false from the discovered config file")
	}
}

func TestLoadReturnsDefaultsWhenNoConfigFound(t *testing.T) {
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer os.Chdir(oldWD)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.EnableWW || !cfg.EnableRW || !cfg.EnableTR {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vracer.json")

	cfg := DefaultConfig()
	cfg.EnableRW = false
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.EnableRW {
		t.Error("expected saved EnableRW=false to round-trip")
	}
}
