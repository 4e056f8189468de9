package contract

import (
	"encoding/json"
	"testing"

	"cuelang.org/go/cue"

	"github.com/hdl-tools/vracer/internal/aggregate"
	"github.com/hdl-tools/vracer/internal/build"
	"github.com/hdl-tools/vracer/internal/detect"
)

func TestDesignValidatorAcceptsBuiltDesign(t *testing.T) {
	design, _, err := build.Design(`
module m;
  reg [7:0] a;
  initial begin
    a = 0;
  end
  always @(posedge clk) begin
    a <= a + 1;
  end
endmodule
`)
	if err != nil {
		t.Fatalf("build.Design: %v", err)
	}

	v, err := NewDesignValidator()
	if err != nil {
		t.Fatalf("NewDesignValidator: %v", err)
	}
	if err := v.Validate(design); err != nil {
		t.Errorf("a well-formed Design should validate, got: %v", err)
	}
}

func TestResultValidatorAcceptsAggregatedRecords(t *testing.T) {
	design, _, err := build.Design(`
module m;
  reg [7:0] count1;
  initial begin
    count1 = 1;
  end
  always @(posedge clk) begin
    count1 = count1 + 1;
  end
endmodule
`)
	if err != nil {
		t.Fatalf("build.Design: %v", err)
	}
	records := aggregate.Aggregate(detect.Detect(design, detect.DefaultOptions()))

	v, err := NewResultValidator()
	if err != nil {
		t.Fatalf("NewResultValidator: %v", err)
	}
	if err := v.Validate(records); err != nil {
		t.Errorf("aggregated records should validate, got: %v", err)
	}
}

func TestResultValidatorAcceptsEmptyList(t *testing.T) {
	v, err := NewResultValidator()
	if err != nil {
		t.Fatalf("NewResultValidator: %v", err)
	}
	if err := v.Validate(nil); err != nil {
		t.Errorf("an empty record list should validate, got: %v", err)
	}
}

func TestResultValidatorRejectsUnknownKind(t *testing.T) {
	v, err := NewResultValidator()
	if err != nil {
		t.Fatalf("NewResultValidator: %v", err)
	}
	bad := []map[string]any{{
		"module": "m", "kind": "XX", "target_signal": "a", "source_signal": "a",
		"anchor_a": "p@entry", "anchor_b": "q@entry", "suppressed": false,
	}}
	jsonBytes, err := json.Marshal(bad)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	dataValue := v.ctx.CompileBytes(jsonBytes)
	def := v.schema.LookupPath(cue.ParsePath("#RaceRecordList"))
	if def.Unify(dataValue).Validate() == nil {
		t.Error("expected an unrecognized race kind to fail validation")
	}
}
