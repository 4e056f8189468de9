// Package detect implements the race detector: a pure function over an
// ir.Design that enumerates process pairs within each module and computes
// the three hazard relations (Write-Write, Read-Write, Trigger). Modeled on
// the teacher's policy.Engine/Result/Violation shape, generalized from
// "evaluate a rego query" to "evaluate three structural predicates".
package detect

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hdl-tools/vracer/internal/ir"
)

// Kind discriminates the three hazard families.
type Kind int

const (
	WW Kind = iota
	RW
	TR
)

// MarshalJSON renders the kind as "WW"/"RW"/"TR".
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k Kind) String() string {
	switch k {
	case WW:
		return "WW"
	case RW:
		return "RW"
	case TR:
		return "TR"
	default:
		return "?"
	}
}

// priority gives the sort order WW < RW < TR used for final output.
func (k Kind) priority() int { return int(k) }

// Record is one race hazard: the 5-tuple of spec §3, plus the owning
// module name (needed to keep records from different modules distinct
// when anchor labels happen to collide).
type Record struct {
	Module       string `json:"module"`
	Kind         Kind   `json:"kind"`
	TargetSignal string `json:"target_signal"`
	SourceSignal string `json:"source_signal"`
	AnchorA      string `json:"anchor_a"`
	AnchorB      string `json:"anchor_b"`

	// Suppressed is set by internal/suppress after policy evaluation. The
	// detector and aggregator never set it; it defaults to false, meaning
	// "no suppression engine configured, or no rule matched".
	Suppressed bool `json:"suppressed"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s:%s(target=%s,source=%s,a=%s,b=%s)", r.Module, r.Kind, r.TargetSignal, r.SourceSignal, r.AnchorA, r.AnchorB)
}

// Options enables or disables each detector class.
type Options struct {
	EnableWW bool
	EnableRW bool
	EnableTR bool
}

// DefaultOptions enables every detector class.
func DefaultOptions() Options {
	return Options{EnableWW: true, EnableRW: true, EnableTR: true}
}

// Detect enumerates process pairs and returns the race records found,
// grouped by module in module order. Within a module, pairs are visited in
// label order and each pair contributes its WW, then RW, then TR records,
// signals in sorted order; records are not sorted by kind across pairs.
// The caller is expected to run the result through internal/aggregate for
// final dedup and sorting.
func Detect(design *ir.Design, opts Options) []Record {
	var out []Record
	for _, mod := range design.Modules {
		out = append(out, detectModule(mod, opts)...)
	}
	return out
}

func detectModule(mod *ir.Module, opts Options) []Record {
	procs := make([]*ir.Process, len(mod.Processes))
	copy(procs, mod.Processes)
	sort.Slice(procs, func(i, j int) bool { return procs[i].Label < procs[j].Label })

	var out []Record
	for i := 0; i < len(procs); i++ {
		for j := i + 1; j < len(procs); j++ {
			p, q := procs[i], procs[j]
			if opts.EnableWW {
				out = append(out, wwRecords(mod.Name, p, q)...)
			}
			if opts.EnableRW {
				out = append(out, rwRecords(mod.Name, p, q)...)
			}
			if opts.EnableTR {
				out = append(out, trRecords(mod.Name, p, q)...)
			}
		}
	}
	return out
}

func wwRecords(module string, p, q *ir.Process) []Record {
	pBlocking := signalsWithBlockingWrite(p)
	qBlocking := signalsWithBlockingWrite(q)
	shared := sortedIntersection(pBlocking, qBlocking)

	var out []Record
	for _, s := range shared {
		aAnchor, _ := firstAnchor(p, s, ir.Write, blockingPtr)
		bAnchor, _ := firstAnchor(q, s, ir.Write, blockingPtr)
		out = append(out, Record{
			Module: module, Kind: WW, TargetSignal: s, SourceSignal: s,
			AnchorA: p.AnchorLabel(aAnchor), AnchorB: q.AnchorLabel(bAnchor),
		})
	}
	return out
}

func rwRecords(module string, p, q *ir.Process) []Record {
	pReads := readSignals(p)
	qReads := readSignals(q)
	pBlockingWrites := signalsWithBlockingWrite(p)
	qBlockingWrites := signalsWithBlockingWrite(q)

	// P reads, Q writes blocking.
	pReaderSignals := sortedIntersection(sortedKeys(pReads), qBlockingWrites)
	// Q reads, P writes blocking.
	qReaderSignals := sortedIntersection(sortedKeys(qReads), pBlockingWrites)

	pReaderSet := toSet(pReaderSignals)
	all := sortedUnion(pReaderSignals, qReaderSignals)

	var out []Record
	for _, s := range all {
		reader, writer := q, p
		if pReaderSet[s] {
			reader, writer = p, q
		}
		readAnchor, _ := firstAnchor(reader, s, ir.Read, nil)
		writeAnchor, _ := firstAnchor(writer, s, ir.Write, blockingPtr)
		out = append(out, Record{
			Module: module, Kind: RW, TargetSignal: s, SourceSignal: s,
			AnchorA: reader.AnchorLabel(readAnchor), AnchorB: writer.AnchorLabel(writeAnchor),
		})
	}
	return out
}

func trRecords(module string, p, q *ir.Process) []Record {
	if p.IsNoneInitial() || q.IsNoneInitial() {
		return nil
	}
	shared := sharedTriggers(p.EffectiveTriggers(), q.EffectiveTriggers())
	if len(shared) == 0 {
		return nil
	}
	firstTrigger := shared[0].String()

	pWrites := signalsWrittenAny(p)
	qWrites := signalsWrittenAny(q)
	sharedSignals := sortedIntersection(pWrites, qWrites)

	var out []Record
	for _, s := range sharedSignals {
		out = append(out, Record{
			Module: module, Kind: TR, TargetSignal: s, SourceSignal: firstTrigger,
			AnchorA: p.AnchorLabel(0), AnchorB: q.AnchorLabel(0),
		})
	}
	return out
}

var blocking = ir.Blocking
var blockingPtr = &blocking

func signalsWithBlockingWrite(p *ir.Process) []string {
	set := map[string]bool{}
	for _, ref := range p.References {
		if ref.Mode == ir.Write && ref.Assignment == ir.Blocking {
			set[ref.SignalName] = true
		}
	}
	return sortedKeys(set)
}

func signalsWrittenAny(p *ir.Process) []string {
	set := map[string]bool{}
	for _, ref := range p.References {
		if ref.Mode == ir.Write {
			set[ref.SignalName] = true
		}
	}
	return sortedKeys(set)
}

func readSignals(p *ir.Process) map[string]bool {
	set := map[string]bool{}
	for _, ref := range p.References {
		if ref.Mode == ir.Read {
			set[ref.SignalName] = true
		}
	}
	return set
}

func firstAnchor(p *ir.Process, signal string, mode ir.ReferenceMode, assign *ir.AssignmentKind) (int, bool) {
	for _, ref := range p.References {
		if ref.SignalName != signal || ref.Mode != mode {
			continue
		}
		if assign != nil && ref.Assignment != *assign {
			continue
		}
		return ref.AnchorID, true
	}
	return 0, false
}

// sharedTriggers returns the triggers common to both sets (structural
// equality), sorted by string form so "first in T_shared" is deterministic
// regardless of which process's trigger list happened to be scanned first.
func sharedTriggers(a, b []ir.Trigger) []ir.Trigger {
	bSet := map[ir.Trigger]bool{}
	for _, t := range b {
		bSet[t] = true
	}
	var out []ir.Trigger
	seen := map[ir.Trigger]bool{}
	for _, t := range a {
		if bSet[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(s []string) map[string]bool {
	out := make(map[string]bool, len(s))
	for _, v := range s {
		out[v] = true
	}
	return out
}

func sortedIntersection(a, b []string) []string {
	bSet := toSet(b)
	var out []string
	for _, v := range a {
		if bSet[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func sortedUnion(a, b []string) []string {
	set := toSet(a)
	for _, v := range b {
		set[v] = true
	}
	return sortedKeys(set)
}
