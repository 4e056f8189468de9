// Package timing records per-file and per-stage durations to a JSONL file,
// ported from internal/indexer/timing.go's timingRecorder: same event
// shape, same env-var opt-in convention, retargeted from VHDL indexing
// phases to VRacer's extract/parse/detect/aggregate pipeline stages.
package timing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one recorded phase or file timing, in milliseconds relative to
// the recorder's start time.
type Event struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"` // "stage" or "file"
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// Recorder writes Events to a JSONL file if enabled, and always keeps them
// in memory for an end-of-run summary.
type Recorder struct {
	enabled bool
	start   time.Time
	mu      sync.Mutex
	events  []Event
	file    *os.File
	enc     *json.Encoder
	err     error
}

// New creates a Recorder. path == "" disables JSONL output (Events are
// still collected in memory).
func New(start time.Time, path string) *Recorder {
	r := &Recorder{start: start}
	if path == "" {
		return r
	}
	f, err := os.Create(path)
	if err != nil {
		r.err = err
		return r
	}
	r.enabled = true
	r.file = f
	r.enc = json.NewEncoder(f)
	return r
}

// Enabled reports whether JSONL output is active.
func (r *Recorder) Enabled() bool { return r != nil && r.enabled }

// Err returns any error encountered opening the output file.
func (r *Recorder) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

// Close closes the underlying file, if any.
func (r *Recorder) Close() {
	if r == nil || r.file == nil {
		return
	}
	_ = r.file.Close()
}

// Events returns a copy of all recorded events, regardless of whether
// JSONL output is enabled.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) record(phase, kind, file, status string, start time.Time, duration time.Duration) {
	if r == nil {
		return
	}
	startMS := msOf(start.Sub(r.start))
	durationMS := msOf(duration)
	event := Event{
		Phase: phase, Kind: kind, File: file, Status: status,
		StartMS: startMS, DurationMS: durationMS, EndMS: startMS + durationMS,
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	if r.enc != nil {
		_ = r.enc.Encode(event)
	}
	r.mu.Unlock()
}

// RecordStage records a pipeline-wide stage timing (e.g. "aggregate").
func (r *Recorder) RecordStage(phase string, start time.Time, duration time.Duration, status string) {
	r.record(phase, "stage", "", status, start, duration)
}

// RecordFile records a per-file timing (e.g. "extract" for one source
// file).
func (r *Recorder) RecordFile(phase, file, status string, start time.Time, duration time.Duration) {
	r.record(phase, "file", file, status, start, duration)
}

func msOf(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}

// ResolvePath mirrors the teacher's env-var-or-flag convention:
// VRACER_TIMING_JSONL wins (even when enabled is false), then, if enabled,
// an explicit path, then a default "timing.jsonl" under root.
func ResolvePath(enabled bool, explicitPath, root string) string {
	if envPath := os.Getenv("VRACER_TIMING_JSONL"); envPath != "" {
		return envPath
	}
	if !enabled {
		return ""
	}
	if explicitPath != "" {
		return explicitPath
	}
	if root == "" {
		return "timing.jsonl"
	}
	return filepath.Join(root, "timing.jsonl")
}
