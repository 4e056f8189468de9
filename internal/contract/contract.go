// Package contract validates the analyzer's IR and final race-record
// output against embedded CUE schemas. This is the same "crash early,
// crash loud" gatekeeper role internal/validator plays in the teacher
// repo, retargeted from VHDL facts/output payloads to VRacer's own
// Design/Record shapes. Both validators are opt-in: the core detector
// stays pure and allocation-light, and the driver decides when to pay
// the marshal-and-unify cost.
package contract

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/hdl-tools/vracer/internal/detect"
	"github.com/hdl-tools/vracer/internal/ir"
)

//go:embed design.cue
var designSchemaFS embed.FS

//go:embed result.cue
var resultSchemaFS embed.FS

// DesignValidator checks an ir.Design against #Design before it reaches
// the detector.
type DesignValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewDesignValidator compiles the embedded design schema.
func NewDesignValidator() (*DesignValidator, error) {
	ctx := cuecontext.New()
	b, err := designSchemaFS.ReadFile("design.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded design schema: %w", err)
	}
	schema := ctx.CompileBytes(b)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling design schema: %w", schema.Err())
	}
	return &DesignValidator{ctx: ctx, schema: schema}, nil
}

// Validate reports whether design conforms to #Design.
func (v *DesignValidator) Validate(design *ir.Design) error {
	jsonBytes, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("marshaling design to JSON: %w", err)
	}
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling design as CUE: %w", dataValue.Err())
	}
	def := v.schema.LookupPath(cue.ParsePath("#Design"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Design definition: %w", def.Err())
	}
	unified := def.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("design schema validation failed: %w", err)
	}
	return nil
}

// ResultValidator checks a final []detect.Record sequence against
// #RaceRecordList before it is handed to report code.
type ResultValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewResultValidator compiles the embedded result schema.
func NewResultValidator() (*ResultValidator, error) {
	ctx := cuecontext.New()
	b, err := resultSchemaFS.ReadFile("result.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded result schema: %w", err)
	}
	schema := ctx.CompileBytes(b)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling result schema: %w", schema.Err())
	}
	return &ResultValidator{ctx: ctx, schema: schema}, nil
}

// Validate reports whether records conforms to #RaceRecordList.
func (v *ResultValidator) Validate(records []detect.Record) error {
	if records == nil {
		records = []detect.Record{}
	}
	jsonBytes, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling records to JSON: %w", err)
	}
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling records as CUE: %w", dataValue.Err())
	}
	def := v.schema.LookupPath(cue.ParsePath("#RaceRecordList"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #RaceRecordList definition: %w", def.Err())
	}
	unified := def.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("result schema validation failed: %w", err)
	}
	return nil
}
