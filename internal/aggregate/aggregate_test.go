package aggregate

import (
	"testing"

	"github.com/hdl-tools/vracer/internal/detect"
)

func TestAggregateDeduplicatesIdenticalTuples(t *testing.T) {
	r := detect.Record{Module: "m", Kind: detect.WW, TargetSignal: "a", SourceSignal: "a", AnchorA: "p@entry", AnchorB: "q@entry"}
	out := Aggregate([]detect.Record{r, r, r})
	if len(out) != 1 {
		t.Fatalf("expected 1 record after dedup, got %d: %v", len(out), out)
	}
}

func TestAggregateSortsByKindPriorityThenTarget(t *testing.T) {
	tr := detect.Record{Module: "m", Kind: detect.TR, TargetSignal: "z", SourceSignal: "posedge clk", AnchorA: "p@entry", AnchorB: "q@entry"}
	rw := detect.Record{Module: "m", Kind: detect.RW, TargetSignal: "b", SourceSignal: "b", AnchorA: "p@entry", AnchorB: "q@entry"}
	ww := detect.Record{Module: "m", Kind: detect.WW, TargetSignal: "c", SourceSignal: "c", AnchorA: "p@entry", AnchorB: "q@entry"}

	out := Aggregate([]detect.Record{tr, rw, ww})
	if len(out) != 3 {
		t.Fatalf("expected 3 records, got %d", len(out))
	}
	if out[0].Kind != detect.WW || out[1].Kind != detect.RW || out[2].Kind != detect.TR {
		t.Errorf("records not sorted WW < RW < TR: %v", out)
	}
}

func TestAggregateSortsByModuleFirst(t *testing.T) {
	inB := detect.Record{Module: "b", Kind: detect.WW, TargetSignal: "a", AnchorA: "p@entry", AnchorB: "q@entry"}
	inA := detect.Record{Module: "a", Kind: detect.WW, TargetSignal: "a", AnchorA: "p@entry", AnchorB: "q@entry"}

	out := Aggregate([]detect.Record{inB, inA})
	if out[0].Module != "a" || out[1].Module != "b" {
		t.Errorf("expected module-first ordering, got %v", out)
	}
}

func TestAggregateDistinctRecordsAllSurvive(t *testing.T) {
	recs := []detect.Record{
		{Module: "m", Kind: detect.WW, TargetSignal: "a", AnchorA: "p@entry", AnchorB: "q@entry"},
		{Module: "m", Kind: detect.WW, TargetSignal: "b", AnchorA: "p@entry", AnchorB: "q@entry"},
	}
	out := Aggregate(recs)
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct records to survive, got %d: %v", len(out), out)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	out := Aggregate(nil)
	if len(out) != 0 {
		t.Errorf("expected empty output for nil input, got %v", out)
	}
}
