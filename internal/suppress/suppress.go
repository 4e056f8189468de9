// Package suppress evaluates user-authored OPA policies against a flattened
// view of each detect.Record to decide whether a hazard the detector found
// should be marked Suppressed. It never removes a record — only annotates
// it — because deleting records under a changing policy directory would
// break the determinism property the detector otherwise guarantees.
//
// Modeled on internal/policy.Engine: same rego.Module/PrepareForEval/Eval
// shape, narrowed from "evaluate a whole VHDL fact set" to "decide one
// boolean per race record".
package suppress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-policy-agent/opa/rego"

	"github.com/hdl-tools/vracer/internal/detect"
)

// Engine evaluates suppression policies against race records.
type Engine struct {
	query rego.PreparedEvalQuery
}

// recordInput is the flattened shape handed to rego: every field a
// suppression rule might reasonably key on.
type recordInput struct {
	Module       string `json:"module"`
	Kind         string `json:"kind"`
	TargetSignal string `json:"target_signal"`
	SourceSignal string `json:"source_signal"`
	AnchorA      string `json:"anchor_a"`
	AnchorB      string `json:"anchor_b"`
}

// New loads every *.rego file in policyDir and prepares the
// data.vracer.suppress.suppressed query. Returns an error if the directory
// has no policy files — same "no files found" guard as policy.New, since a
// configured-but-empty policy directory usually signals a typo.
func New(policyDir string) (*Engine, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}

	var modules []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}

	opts := append(modules, rego.Query("data.vracer.suppress.suppressed"))
	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing suppression query: %w", err)
	}
	return &Engine{query: query}, nil
}

// Apply evaluates the suppression policy against each record and returns a
// copy of records with Suppressed set where a rule matched. The input slice
// is left unmodified.
func (e *Engine) Apply(records []detect.Record) ([]detect.Record, error) {
	ctx := context.Background()
	out := make([]detect.Record, len(records))
	for i, r := range records {
		out[i] = r
		input := recordInput{
			Module: r.Module, Kind: r.Kind.String(), TargetSignal: r.TargetSignal,
			SourceSignal: r.SourceSignal, AnchorA: r.AnchorA, AnchorB: r.AnchorB,
		}
		inputMap, err := toMap(input)
		if err != nil {
			return nil, fmt.Errorf("converting record to OPA input: %w", err)
		}
		rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
		if err != nil {
			return nil, fmt.Errorf("evaluating suppression for %s: %w", r, err)
		}
		if len(rs) > 0 && len(rs[0].Expressions) > 0 {
			if b, ok := rs[0].Expressions[0].Value.(bool); ok && b {
				out[i].Suppressed = true
			}
		}
	}
	return out, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}
