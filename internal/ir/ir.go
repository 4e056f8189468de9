// Package ir defines the analysis-ready intermediate representation that
// the front end builds and the race detector reads: designs, modules,
// processes, triggers, anchors, and signal references.
package ir

import (
	"encoding/json"
	"fmt"
)

// ProcessKind enumerates the process constructs the front end recognizes.
type ProcessKind int

const (
	AlwaysGeneral ProcessKind = iota
	AlwaysFF
	AlwaysComb
	AlwaysLatch
	Initial
	Final
)

func (k ProcessKind) String() string {
	switch k {
	case AlwaysGeneral:
		return "always"
	case AlwaysFF:
		return "always_ff"
	case AlwaysComb:
		return "always_comb"
	case AlwaysLatch:
		return "always_latch"
	case Initial:
		return "initial"
	case Final:
		return "final"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as its lowercase keyword rather than an
// integer, so structured output stays readable without a lookup table.
func (k ProcessKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// TriggerKind discriminates the tagged variants of a Trigger.
type TriggerKind int

const (
	EdgePos TriggerKind = iota
	EdgeNeg
	Level
	StarImplicit
	NoneInitial
)

// Trigger is a sensitivity entry: an edge or level on a named signal, the
// synthesized implicit star (for always_comb/always_latch/bare @*), or the
// absence of a trigger (initial/final). Equality is structural.
type Trigger struct {
	Kind   TriggerKind `json:"kind"`
	Signal string      `json:"signal,omitempty"` // empty for StarImplicit and NoneInitial
}

func (t Trigger) String() string {
	switch t.Kind {
	case EdgePos:
		return "posedge " + t.Signal
	case EdgeNeg:
		return "negedge " + t.Signal
	case Level:
		return t.Signal
	case StarImplicit:
		return "*"
	case NoneInitial:
		return "none"
	default:
		return "?"
	}
}

// MarshalJSON renders the tag as its keyword ("posedge", "negedge",
// "level", "star", "none") rather than an integer.
func (k TriggerKind) MarshalJSON() ([]byte, error) {
	switch k {
	case EdgePos:
		return json.Marshal("posedge")
	case EdgeNeg:
		return json.Marshal("negedge")
	case Level:
		return json.Marshal("level")
	case StarImplicit:
		return json.Marshal("star")
	case NoneInitial:
		return json.Marshal("none")
	default:
		return json.Marshal("unknown")
	}
}

// Anchor designates a point within a process execution: the entry point or
// an embedded event control. Anchor ids are stable within a single parse
// of a given process (0 = entry, 1..N = the k-th embedded event control in
// lexical order).
type Anchor struct {
	ID    int    `json:"id"`
	Label string `json:"label"` // human-readable form: "<process-label>@<desc>[#k]"
}

// ReferenceMode is read or write.
type ReferenceMode int

const (
	Read ReferenceMode = iota
	Write
)

func (m ReferenceMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// MarshalJSON renders the mode as "read"/"write".
func (m ReferenceMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// AssignmentKind discriminates blocking from non-blocking assignments.
// Reads carry AssignmentNA since the distinction is meaningless for them.
type AssignmentKind int

const (
	AssignmentNA AssignmentKind = iota
	Blocking
	Nonblocking
)

func (a AssignmentKind) String() string {
	switch a {
	case Blocking:
		return "blocking"
	case Nonblocking:
		return "nonblocking"
	default:
		return "n/a"
	}
}

// MarshalJSON renders the kind as "blocking"/"nonblocking"/"n/a".
func (a AssignmentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// SignalReference is the atomic analyzer input: one read or write of a
// named signal, occurring at a specific anchor within a process.
type SignalReference struct {
	SignalName string         `json:"signal_name"`
	Mode       ReferenceMode  `json:"mode"`
	Assignment AssignmentKind `json:"assignment_kind"`
	AnchorID   int            `json:"anchor_id"`
}

// Process is one top-level concurrent construct (always*, initial, final)
// together with its trigger set, anchor points, and signal references.
// Constructed by the process parser; never mutated by the detector.
type Process struct {
	Kind         ProcessKind       `json:"kind"`
	Label        string            `json:"label"`
	TriggerSet   []Trigger         `json:"trigger_set"`
	AnchorPoints []Anchor          `json:"anchor_points"`
	References   []SignalReference `json:"references"`
}

// HasTrigger reports whether t is structurally present in the process's
// trigger set.
func (p *Process) HasTrigger(t Trigger) bool {
	for _, cur := range p.TriggerSet {
		if cur == t {
			return true
		}
	}
	return false
}

// IsNoneInitial reports whether the process's trigger set contains the
// NoneInitial sentinel (initial/final processes).
func (p *Process) IsNoneInitial() bool {
	for _, t := range p.TriggerSet {
		if t.Kind == NoneInitial {
			return true
		}
	}
	return false
}

// EffectiveTriggers returns the trigger set used at detector time: the
// literal trigger set, except StarImplicit expands to Level(r) for every
// signal the process reads. Expanding at parse time would conflate
// triggers with reads and break trigger-race bookkeeping (spec §9).
func (p *Process) EffectiveTriggers() []Trigger {
	hasStar := false
	for _, t := range p.TriggerSet {
		if t.Kind == StarImplicit {
			hasStar = true
			break
		}
	}
	if !hasStar {
		return p.TriggerSet
	}

	seen := make(map[string]bool)
	var out []Trigger
	for _, t := range p.TriggerSet {
		if t.Kind != StarImplicit {
			out = append(out, t)
		}
	}
	for _, ref := range p.References {
		if ref.Mode != Read {
			continue
		}
		if seen[ref.SignalName] {
			continue
		}
		seen[ref.SignalName] = true
		out = append(out, Trigger{Kind: Level, Signal: ref.SignalName})
	}
	return out
}

// AnchorLabel returns the human-readable label for anchor id, or the
// synthesized fallback "<label>@?" if the id is unknown (should not
// happen for a well-formed Process per the anchor-validity invariant).
func (p *Process) AnchorLabel(id int) string {
	for _, a := range p.AnchorPoints {
		if a.ID == id {
			return a.Label
		}
	}
	return fmt.Sprintf("%s@?", p.Label)
}

// NetKind enumerates the declared-net kinds the front end recognizes.
type NetKind int

const (
	Wire NetKind = iota
	RegLogic
	IntNet
	RealNet
	Unresolved
)

// NetDecl is a declared net: its bit width (0 if not statically known) and
// kind.
type NetDecl struct {
	Name  string  `json:"name"`
	Width int     `json:"width"`
	Kind  NetKind `json:"kind"`
}

func (k NetKind) String() string {
	switch k {
	case Wire:
		return "wire"
	case RegLogic:
		return "reg"
	case IntNet:
		return "int"
	case RealNet:
		return "real"
	default:
		return "unresolved"
	}
}

// MarshalJSON renders the net kind as its keyword.
func (k NetKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Module is a named collection of parameters, declared nets, and an
// ordered list of processes.
type Module struct {
	Name       string             `json:"name"`
	Parameters map[string]string  `json:"parameters"` // name -> default textual value
	Nets       map[string]NetDecl `json:"nets"`
	Processes  []*Process         `json:"processes"`
}

// Design is an ordered sequence of modules, immutable once built.
type Design struct {
	Modules []*Module `json:"modules"`
}
