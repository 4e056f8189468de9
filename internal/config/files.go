package config

import (
	"os"
	"path/filepath"
	"strings"
)

// SourceSetConfig is one named group of Verilog/Verilog-AMS source files,
// specified as include/exclude glob patterns relative to the config
// file's root. Lets a project describe "rtl" and "tb" (or similar) source
// sets once instead of listing every file on the command line.
type SourceSetConfig struct {
	Files   []string `json:"files"`
	Exclude []string `json:"exclude,omitempty"`
}

// FileEntry names a single file outside any glob pattern (e.g. a
// generated file in a build directory) and assigns it to a source set.
type FileEntry struct {
	File string `json:"file"`
	Set  string `json:"set"`
}

// ResolvedSourceSet is one named source set with its glob patterns fully
// expanded to concrete, existing file paths.
type ResolvedSourceSet struct {
	Name  string
	Files []string
}

var sourceExtensions = map[string]bool{
	".v":    true,
	".vh":   true,
	".sv":   true,
	".svh":  true,
	".vams": true,
}

// ResolveSourceSets expands every configured source set's glob patterns
// (and any standalone FileEntry) against rootPath, filtering to
// recognized Verilog/Verilog-AMS extensions.
func (c *Config) ResolveSourceSets(rootPath string) ([]ResolvedSourceSet, error) {
	var result []ResolvedSourceSet

	for name, setCfg := range c.SourceSets {
		fileSet := make(map[string]bool)

		for _, pattern := range setCfg.Files {
			for _, match := range expandPattern(rootPath, pattern) {
				if isSourceFile(match) {
					fileSet[match] = true
				}
			}
		}
		for _, pattern := range setCfg.Exclude {
			for _, match := range expandPattern(rootPath, pattern) {
				delete(fileSet, match)
			}
		}

		resolved := ResolvedSourceSet{Name: name, Files: sortedFiles(fileSet)}
		result = append(result, resolved)
	}

	for _, entry := range c.ExtraFiles {
		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootPath, path)
		}
		if !isSourceFile(path) {
			continue
		}
		result = appendToSet(result, entry.Set, path)
	}

	return result, nil
}

func appendToSet(sets []ResolvedSourceSet, name, file string) []ResolvedSourceSet {
	for i := range sets {
		if sets[i].Name == name {
			if !containsFile(sets[i].Files, file) {
				sets[i].Files = append(sets[i].Files, file)
			}
			return sets
		}
	}
	return append(sets, ResolvedSourceSet{Name: name, Files: []string{file}})
}

func containsFile(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}

func expandPattern(rootPath, pattern string) []string {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(rootPath, pattern)
	}
	if strings.Contains(pattern, "**") {
		matches, err := expandDoubleStarGlob(pattern)
		if err != nil {
			return nil
		}
		return matches
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return matches
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
// rooted at the portion of the pattern before **.
func expandDoubleStarGlob(pattern string) ([]string, error) {
	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	var results []string
	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}
		return nil
	})
	return results, err
}

func matchSuffix(path, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, string(filepath.Separator))

	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}
	if len(path) > len(pattern) {
		suffix := path[len(path)-len(pattern):]
		matched, _ = filepath.Match(pattern, suffix)
		return matched
	}
	return false
}

func isSourceFile(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

func sortedFiles(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// AllFiles returns every resolved source file across all source sets,
// deduplicated, in sorted order. Used by the driver when no explicit file
// arguments are given but the config declares source sets.
func (c *Config) AllFiles(rootPath string) ([]string, error) {
	sets, err := c.ResolveSourceSets(rootPath)
	if err != nil {
		return nil, err
	}
	fileSet := make(map[string]bool)
	for _, s := range sets {
		for _, f := range s.Files {
			fileSet[f] = true
		}
	}
	return sortedFiles(fileSet), nil
}
