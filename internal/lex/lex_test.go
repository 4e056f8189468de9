package lex

import (
	"strings"
	"testing"
)

func TestExtractSingleModuleWithProcesses(t *testing.T) {
	src := `
module counter(input clk, output reg [7:0] q);
  reg [7:0] count1;
  always @(posedge clk) begin
    count1 <= count1 + 1;
  end
  initial begin
    count1 = 0;
  end
endmodule
`
	blocks, diags, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 module block, got %d", len(blocks))
	}
	mod := blocks[0]
	if mod.Name != "counter" {
		t.Errorf("module name = %q, want counter", mod.Name)
	}
	if len(mod.Processes) != 2 {
		t.Fatalf("expected 2 processes, got %d: %v", len(mod.Processes), mod.Processes)
	}
	if mod.Processes[0].Keyword != "always" || mod.Processes[0].SensitivityText != "posedge clk" {
		t.Errorf("process 0 = %+v", mod.Processes[0])
	}
	if mod.Processes[1].Keyword != "initial" || mod.Processes[1].HasSensitivity {
		t.Errorf("process 1 = %+v", mod.Processes[1])
	}
}

func TestExtractLabeledBlock(t *testing.T) {
	src := `
module m;
  reg [7:0] a;
  always @(posedge clk) begin : my_block
    a <= a + 1;
  end
endmodule
`
	blocks, _, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	proc := blocks[0].Processes[0]
	if proc.Label != "my_block" {
		t.Errorf("label = %q, want my_block", proc.Label)
	}
	if strings.Contains(proc.Body, ":") {
		t.Errorf("label separator leaked into body: %q", proc.Body)
	}
}

func TestExtractContinuousAssign(t *testing.T) {
	src := `
module m;
  wire [7:0] a, b, sum;
  assign sum = a + b;
endmodule
`
	blocks, _, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(blocks[0].Processes) != 1 || blocks[0].Processes[0].Keyword != "assign" {
		t.Fatalf("expected one assign process, got %v", blocks[0].Processes)
	}
}

func TestExtractBareStarSensitivity(t *testing.T) {
	src := `
module m;
  reg [7:0] a, b;
  always_comb begin
    a = b + 1;
  end
  always @* begin
    b = a + 1;
  end
endmodule
`
	blocks, _, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	procs := blocks[0].Processes
	if len(procs) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(procs))
	}
	if procs[0].Keyword != "always_comb" || procs[0].HasSensitivity {
		t.Errorf("always_comb should have no explicit sensitivity text: %+v", procs[0])
	}
	if procs[1].SensitivityText != "*" {
		t.Errorf("bare @* sensitivity text = %q, want *", procs[1].SensitivityText)
	}
}

func TestExtractUnbalancedModuleIsParseError(t *testing.T) {
	src := `module m; reg a; endmodule endmodule`
	if _, _, err := Extract(src); err == nil {
		t.Fatal("expected a ParseError for unbalanced module/endmodule")
	} else if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestExtractUnbalancedBeginEndIsParseError(t *testing.T) {
	src := `
module m;
  reg a;
  always @(posedge clk) begin
    a <= a + 1;
endmodule
`
	if _, _, err := Extract(src); err == nil {
		t.Fatal("expected a ParseError for unbalanced begin/end")
	}
}

func TestExtractSensitivitylessAlwaysIsUnsupportedConstructDiagnostic(t *testing.T) {
	src := `
module m;
  reg a;
  always begin
    a = ~a;
  end
endmodule
`
	_, diags, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(diags) != 1 || diags[0].Kind != "UnsupportedConstruct" {
		t.Fatalf("expected one UnsupportedConstruct diagnostic, got %v", diags)
	}
}

func TestExtractStripsCommentsAndStrings(t *testing.T) {
	src := `
module m; // trailing comment
  reg a;
  /* block
     comment */
  initial begin
    a = 0; // a "quoted; string" that should not confuse the scanner
  end
endmodule
`
	blocks, _, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(blocks) != 1 || len(blocks[0].Processes) != 1 {
		t.Fatalf("expected one module with one process, got %+v", blocks)
	}
}

func TestExtractMultipleModules(t *testing.T) {
	src := `
module a;
  reg x;
  initial begin
    x = 0;
  end
endmodule

module b;
  reg y;
  initial begin
    y = 0;
  end
endmodule
`
	blocks, _, err := Extract(src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(blocks))
	}
	if blocks[0].Name != "a" || blocks[1].Name != "b" {
		t.Errorf("module names = %q, %q", blocks[0].Name, blocks[1].Name)
	}
}
