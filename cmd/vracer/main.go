// VRacer's command-line driver: reads one or more Verilog/Verilog-AMS
// files, runs them through the analyzer pipeline, and reports race
// hazards. The driver is informative only (spec §6) — file I/O,
// concurrency, and report formatting live here; the core packages stay
// pure. Flag surface anglicized from the prototype's argparse interface
// (SPEC_FULL.md §4).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hdl-tools/vracer/internal/config"
	"github.com/hdl-tools/vracer/internal/detect"
	"github.com/hdl-tools/vracer/internal/run"
)

func main() {
	var (
		verbose       = flag.Bool("verbose", false, "log diagnostics and per-file timing")
		summary       = flag.Bool("summary", false, "print per-kind hazard counts")
		noWW          = flag.Bool("no-ww", false, "disable Write-Write detection")
		noRW          = flag.Bool("no-rw", false, "disable Read-Write detection")
		noTrigger     = flag.Bool("no-trigger", false, "disable Trigger detection")
		jsonOutput    = flag.Bool("json", false, "emit race records as JSON")
		noContract    = flag.Bool("no-contract-check", false, "skip CUE contract validation")
		policyDir     = flag.String("policy-dir", "", "directory of .rego suppression policies")
		timingPath    = flag.String("timing", "", "write JSONL timing events to this path")
		configPath    = flag.String("config", "", "explicit config file path")
	)
	flag.Parse()

	paths := flag.Args()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	rootHint := "."
	if len(paths) > 0 {
		rootHint = paths[0]
	}
	cfg, err := loadConfig(*configPath, rootHint)
	if err != nil {
		logger.Warn("could not load config, using defaults", zap.Error(err))
		cfg = config.DefaultConfig()
	}

	if len(paths) == 0 {
		discovered, derr := cfg.AllFiles(".")
		if derr != nil || len(discovered) == 0 {
			fmt.Fprintln(os.Stderr, "usage: vracer [flags] <file.v> [file2.v ...]")
			os.Exit(1)
		}
		paths = discovered
	}
	if *noWW {
		cfg.EnableWW = false
	}
	if *noRW {
		cfg.EnableRW = false
	}
	if *noTrigger {
		cfg.EnableTR = false
	}
	if *policyDir != "" {
		cfg.Suppression.Enabled = true
		cfg.Suppression.PolicyDir = *policyDir
	}

	result, err := run.Run(context.Background(), paths, cfg, run.Options{
		ContractCheck: !*noContract,
		TimingEnabled: *timingPath != "",
		TimingPath:    *timingPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "vracer: %v\n", err)
		os.Exit(1)
	}

	exitCode := 0
	for _, fr := range result.Files {
		if fr.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", fr.Path, fr.Err)
			exitCode = 1
			continue
		}
		for _, d := range fr.Diagnostics {
			logger.Warn(d.Kind, zap.String("file", fr.Path), zap.String("message", d.Message), zap.Int("offset", d.Offset))
		}
	}

	if *jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(result.Records); err != nil {
			fmt.Fprintf(os.Stderr, "vracer: encoding output: %v\n", err)
			os.Exit(1)
		}
	} else {
		printRecords(result.Records)
	}

	if *summary {
		s := result.Summary
		fmt.Printf("WW:%d RW:%d TR:%d\n", s.WW, s.RW, s.TR)
	}

	os.Exit(exitCode)
}

func loadConfig(explicitPath, rootHint string) (*config.Config, error) {
	if explicitPath != "" {
		return config.LoadFile(explicitPath)
	}
	return config.Load(rootHint)
}

func printRecords(records []detect.Record) {
	for _, r := range records {
		suppressed := ""
		if r.Suppressed {
			suppressed = " [suppressed]"
		}
		fmt.Printf("%s %s: %s <-> %s on %s (source %s)%s\n",
			r.Module, r.Kind, r.AnchorA, r.AnchorB, r.TargetSignal, r.SourceSignal, suppressed)
	}
}
