// Package aggregate implements the Result Aggregator (spec §4.5):
// deduplicate identical race records and produce the final deterministic
// sort order. Modeled on the dedup/sort idiom of facts/delta.go and
// facts/filter.go — the same "shrink a raw list to a canonical one" shape,
// applied to race records instead of relational fact rows.
package aggregate

import (
	"sort"

	"github.com/hdl-tools/vracer/internal/detect"
)

type key struct {
	module  string
	kind    detect.Kind
	target  string
	source  string
	anchorA string
	anchorB string
}

func keyOf(r detect.Record) key {
	return key{r.Module, r.Kind, r.TargetSignal, r.SourceSignal, r.AnchorA, r.AnchorB}
}

// Aggregate deduplicates identical 5-tuples (scoped per module, see
// detect.Record's doc comment on why Module is part of identity) and
// returns the result sorted by (module, kind priority, target_signal,
// anchor_a, anchor_b) — module ordering is this package's own addition on
// top of spec §4.4's single-module ordering rule, needed once a Design
// spans more than one module.
func Aggregate(records []detect.Record) []detect.Record {
	seen := make(map[key]bool, len(records))
	out := make([]detect.Record, 0, len(records))
	for _, r := range records {
		k := keyOf(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.TargetSignal != b.TargetSignal {
			return a.TargetSignal < b.TargetSignal
		}
		if a.AnchorA != b.AnchorA {
			return a.AnchorA < b.AnchorA
		}
		return a.AnchorB < b.AnchorB
	})
	return out
}
