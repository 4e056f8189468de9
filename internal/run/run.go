// Package run is the driver-level orchestrator: it reads input files,
// drives them through internal/build, internal/detect, and
// internal/aggregate, and optionally applies the cache, suppression, and
// contract-validation layers. Modeled on internal/indexer.Run's shape —
// parallel per-file extraction with a timing recorder and a cache in
// front of it — but using golang.org/x/sync/errgroup in place of the
// teacher's raw sync.WaitGroup/channel fan-in (spec SPEC_FULL.md §1.6).
package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hdl-tools/vracer/internal/aggregate"
	"github.com/hdl-tools/vracer/internal/build"
	"github.com/hdl-tools/vracer/internal/cache"
	"github.com/hdl-tools/vracer/internal/config"
	"github.com/hdl-tools/vracer/internal/contract"
	"github.com/hdl-tools/vracer/internal/detect"
	"github.com/hdl-tools/vracer/internal/ir"
	"github.com/hdl-tools/vracer/internal/suppress"
	"github.com/hdl-tools/vracer/internal/timing"
)

// FileResult is one input file's outcome: either a built Design plus
// non-fatal diagnostics, or a fatal Err (spec §7's IoError/ParseError).
// Per spec §7, a fatal error here scopes to this file only — other files
// in the same run are unaffected.
type FileResult struct {
	Path        string
	Design      *ir.Design
	Diagnostics []build.Diagnostic
	Err         error
	CacheHit    bool
}

// Options configures one Run invocation beyond what lives in
// config.Config (these are driver-only knobs, not part of the persisted
// config file).
type Options struct {
	ContractCheck     bool
	TimingEnabled     bool
	TimingPath        string
	PolicyDirOverride string // non-empty wins over cfg.Suppression.PolicyDir
}

// Summary carries the per-kind hazard counts (SPEC_FULL.md §4, the
// prototype's "WW:%d RW:%d TR:%d" line).
type Summary struct {
	WW, RW, TR, Total int
}

// Result is the outcome of one Run call across all input files.
type Result struct {
	Files   []FileResult
	Records []detect.Record
	Summary Summary
	Elapsed time.Duration
}

// Run processes paths concurrently (bounded by cfg.MaxParallelFiles, 0 =
// unbounded) and returns the aggregated, optionally suppressed and
// contract-checked race records.
func Run(ctx context.Context, paths []string, cfg *config.Config, opts Options) (*Result, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	runStart := time.Now()

	tpath := timing.ResolvePath(opts.TimingEnabled, opts.TimingPath, "")
	rec := timing.New(runStart, tpath)
	defer rec.Close()

	var fileCache *cache.Cache
	if cfg.Cache.Enabled != nil && *cfg.Cache.Enabled {
		fileCache = cache.New(cfg.Cache.Dir)
		if err := fileCache.Load(); err != nil {
			fileCache = nil
		}
	}

	results, err := runFiles(ctx, paths, fileCache, rec, cfg.MaxParallelFiles)
	if err != nil {
		return nil, err
	}

	if fileCache != nil {
		_ = fileCache.Save()
	}

	var designValidator *contract.DesignValidator
	var resultValidator *contract.ResultValidator
	if opts.ContractCheck {
		designValidator, err = contract.NewDesignValidator()
		if err != nil {
			return nil, fmt.Errorf("loading design contract: %w", err)
		}
		resultValidator, err = contract.NewResultValidator()
		if err != nil {
			return nil, fmt.Errorf("loading result contract: %w", err)
		}
	}

	detectStart := time.Now()
	detectOpts := cfg.DetectOptions()
	var all []detect.Record
	for i := range results {
		d := results[i].Design
		if d == nil {
			continue
		}
		if designValidator != nil {
			if verr := designValidator.Validate(d); verr != nil {
				results[i].Err = fmt.Errorf("design contract violated: %w", verr)
				continue
			}
		}
		all = append(all, detect.Detect(d, detectOpts)...)
	}
	rec.RecordStage("detect", detectStart, time.Since(detectStart), "")

	aggStart := time.Now()
	final := aggregate.Aggregate(all)
	rec.RecordStage("aggregate", aggStart, time.Since(aggStart), "")

	policyDir := opts.PolicyDirOverride
	if policyDir == "" && cfg.Suppression.Enabled {
		policyDir = cfg.Suppression.PolicyDir
	}
	if policyDir != "" {
		engine, serr := suppress.New(policyDir)
		if serr != nil {
			return nil, fmt.Errorf("loading suppression policy: %w", serr)
		}
		final, serr = engine.Apply(final)
		if serr != nil {
			return nil, fmt.Errorf("applying suppression policy: %w", serr)
		}
	}

	if resultValidator != nil {
		if verr := resultValidator.Validate(final); verr != nil {
			return nil, fmt.Errorf("result contract violated: %w", verr)
		}
	}

	return &Result{
		Files:   results,
		Records: final,
		Summary: summarize(final),
		Elapsed: time.Since(runStart),
	}, nil
}

// runFiles builds each file's Design concurrently, consulting the cache
// first. A per-file IoError or ParseError is recorded on that file's
// FileResult and does not abort the group — spec §7 scopes parse failures
// to the offending file.
func runFiles(ctx context.Context, paths []string, fileCache *cache.Cache, rec *timing.Recorder, maxParallel int) ([]FileResult, error) {
	results := make([]FileResult, len(paths))

	g, _ := errgroup.WithContext(ctx)
	if maxParallel > 0 {
		g.SetLimit(maxParallel)
	}

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			fileStart := time.Now()
			data, err := os.ReadFile(path)
			if err != nil {
				results[i] = FileResult{Path: path, Err: fmt.Errorf("reading %s: %w", path, err)}
				rec.RecordFile("build", path, "io_error", fileStart, time.Since(fileStart))
				return nil
			}

			hash := cache.HashBytes(data)
			if fileCache != nil {
				if design, ok, _ := fileCache.Get(path, hash); ok {
					results[i] = FileResult{Path: path, Design: design, CacheHit: true}
					rec.RecordFile("build", path, "cache_hit", fileStart, time.Since(fileStart))
					return nil
				}
			}

			design, diags, err := build.Design(string(data))
			if err != nil {
				results[i] = FileResult{Path: path, Err: fmt.Errorf("parsing %s: %w", path, err)}
				rec.RecordFile("build", path, "parse_error", fileStart, time.Since(fileStart))
				return nil
			}

			var buildDiags []build.Diagnostic
			buildDiags = append(buildDiags, diags...)
			results[i] = FileResult{Path: path, Design: design, Diagnostics: buildDiags}

			if fileCache != nil {
				_ = fileCache.Put(path, hash, design)
			}
			rec.RecordFile("build", path, "built", fileStart, time.Since(fileStart))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func summarize(records []detect.Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Kind {
		case detect.WW:
			s.WW++
		case detect.RW:
			s.RW++
		case detect.TR:
			s.TR++
		}
		s.Total++
	}
	return s
}
