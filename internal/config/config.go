// Package config loads VRacer's JSON configuration file: the three
// detector switches, the incremental-cache settings, and the suppression
// policy directory. Adapted from vhdl_lint.json's loader — same search
// path convention, same DefaultConfig/Load/LoadFile/Save shape — retargeted
// from VHDL library/rule configuration to VRacer's own domain switches.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hdl-tools/vracer/internal/detect"
)

// Config is the top-level configuration for vracer.
type Config struct {
	// EnableWW/EnableRW/EnableTR gate the three detector classes (spec
	// §4.4's Options, carried through to the CLI and the config file).
	EnableWW bool `json:"enable_ww"`
	EnableRW bool `json:"enable_rw"`
	EnableTR bool `json:"enable_tr"`

	// MaxParallelFiles limits concurrent file processing (0 = no limit).
	MaxParallelFiles int `json:"max_parallel_files,omitempty"`

	Cache       CacheConfig       `json:"cache,omitempty"`
	Suppression SuppressionConfig `json:"suppression,omitempty"`

	// SourceSets and ExtraFiles let a project declare its Verilog sources
	// once in the config file rather than on every CLI invocation; see
	// internal/config/files.go. Both are optional: a config with neither
	// relies entirely on the paths given on the command line.
	SourceSets map[string]SourceSetConfig `json:"source_sets,omitempty"`
	ExtraFiles []FileEntry                `json:"extra_files,omitempty"`
}

// CacheConfig controls the incremental analysis cache (internal/cache).
type CacheConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Dir     string `json:"dir,omitempty"`
}

// SuppressionConfig controls the opt-in OPA suppression layer
// (internal/suppress). Enabled defaults to false: with no policy
// directory configured, every record is reported exactly as the detector
// produced it, matching spec.md's original policy-free semantics.
type SuppressionConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	PolicyDir string `json:"policy_dir,omitempty"`
}

// DefaultConfig returns a sensible default configuration: all three
// detector classes on, cache on, suppression off.
func DefaultConfig() *Config {
	return &Config{
		EnableWW:         true,
		EnableRW:         true,
		EnableTR:         true,
		MaxParallelFiles: 0,
		Cache: CacheConfig{
			Enabled: boolPtr(true),
			Dir:     ".vracer_cache",
		},
		Suppression: SuppressionConfig{
			Enabled:   false,
			PolicyDir: "",
		},
	}
}

func boolPtr(v bool) *bool { return &v }

// DetectOptions converts the config's detector switches into
// detect.Options.
func (c *Config) DetectOptions() detect.Options {
	return detect.Options{EnableWW: c.EnableWW, EnableRW: c.EnableRW, EnableTR: c.EnableTR}
}

// Load finds and loads the configuration file.
// Search order:
//  1. ./vracer.json (current working directory)
//  2. ./.vracer.json (current working directory)
//  3. <rootPath>/vracer.json (if different from cwd)
//  4. <rootPath>/.vracer.json
//  5. ~/.config/vracer/config.json
//
// Returns DefaultConfig if no config file is found.
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "vracer.json"),
		filepath.Join(cwd, ".vracer.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "vracer.json"),
				filepath.Join(rootPath, ".vracer.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "vracer", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Dir == "" {
		c.Cache.Dir = ".vracer_cache"
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
