// Package build assembles the analysis-ready ir.Design from raw source
// text: it drives the structural extractor and process parser, resolves
// process labels, parses parameter/net declarations, and flags unresolved
// signal names. This is the IR Builder of spec §4.3, split into its own
// package to avoid an import cycle between internal/ir and
// internal/procparse (the parser needs ir's types; ir itself stays a
// dependency-free data model).
package build

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hdl-tools/vracer/internal/ir"
	"github.com/hdl-tools/vracer/internal/lex"
	"github.com/hdl-tools/vracer/internal/procparse"
)

// Diagnostic is a non-fatal note surfaced anywhere in the lex/procparse/
// build pipeline, flattened to one shape for the driver to log.
type Diagnostic struct {
	Kind    string
	Message string
	Offset  int
}

// Design builds a complete ir.Design from one file's source text. A
// structural imbalance anywhere in the file aborts the whole file with the
// underlying *lex.ParseError/*procparse.ParseError.
func Design(source string) (*ir.Design, []Diagnostic, error) {
	blocks, lexDiags, err := lex.Extract(source)
	if err != nil {
		return nil, nil, err
	}

	var diags []Diagnostic
	for _, d := range lexDiags {
		diags = append(diags, Diagnostic{Kind: d.Kind, Message: d.Message, Offset: d.Offset})
	}

	design := &ir.Design{}
	for _, block := range blocks {
		mod, modDiags, err := buildModule(block)
		if err != nil {
			return nil, nil, err
		}
		diags = append(diags, modDiags...)
		design.Modules = append(design.Modules, mod)
	}
	return design, diags, nil
}

func buildModule(block lex.ModuleBlock) (*ir.Module, []Diagnostic, error) {
	mod := &ir.Module{
		Name:       block.Name,
		Parameters: map[string]string{},
		Nets:       map[string]ir.NetDecl{},
	}

	var diags []Diagnostic
	parseDeclarations(block.HeaderText, mod)
	parseDeclarations(block.Body, mod)

	counters := map[string]int{}
	for _, span := range block.Processes {
		kind := kindForKeyword(span.Keyword)
		label := span.Label
		if label == "" {
			idx := counters[span.Keyword]
			counters[span.Keyword] = idx + 1
			label = fmt.Sprintf("c_%s_%d", span.Keyword, idx)
		}

		proc, procDiags, err := procparse.Parse(span, kind, label)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range procDiags {
			diags = append(diags, Diagnostic{Kind: d.Kind, Message: d.Message, Offset: span.Offset + d.Offset})
		}

		for _, ref := range proc.References {
			if _, ok := mod.Nets[ref.SignalName]; !ok {
				mod.Nets[ref.SignalName] = ir.NetDecl{Name: ref.SignalName, Kind: ir.Unresolved}
				diags = append(diags, Diagnostic{
					Kind:    "UnresolvedSignal",
					Message: fmt.Sprintf("unresolved signal %q referenced in process %q", ref.SignalName, label),
					Offset:  span.Offset,
				})
			}
		}

		mod.Processes = append(mod.Processes, proc)
	}

	return mod, diags, nil
}

func kindForKeyword(kw string) ir.ProcessKind {
	switch kw {
	case "always":
		return ir.AlwaysGeneral
	case "always_ff":
		return ir.AlwaysFF
	case "always_comb":
		return ir.AlwaysComb
	case "always_latch":
		return ir.AlwaysLatch
	case "initial":
		return ir.Initial
	case "final":
		return ir.Final
	case "assign":
		return ir.AlwaysComb
	default:
		return ir.AlwaysGeneral
	}
}

var (
	declRE      = regexp.MustCompile(`(?m)\b(wire|reg|logic|int|real|parameter|localparam)\b([^;]*);`)
	widthRE     = regexp.MustCompile(`\[\s*(\d+)\s*:\s*(\d+)\s*\]`)
	typeWordRE  = regexp.MustCompile(`^\s*(signed|unsigned|integer|int|real|reg|logic|wire)\s+`)
	nameOnlyRE  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// parseDeclarations is a best-effort scan for parameter/localparam/net
// declarations: it does not attempt full expression parsing of default
// values or multi-dimensional widths.
func parseDeclarations(text string, mod *ir.Module) {
	for _, m := range declRE.FindAllStringSubmatch(text, -1) {
		keyword := m[1]
		rest := m[2]

		switch keyword {
		case "parameter", "localparam":
			rest = typeWordRE.ReplaceAllString(rest, "")
			for _, item := range strings.Split(rest, ",") {
				item = strings.TrimSpace(item)
				if item == "" {
					continue
				}
				parts := strings.SplitN(item, "=", 2)
				name := strings.TrimSpace(parts[0])
				name = typeWordRE.ReplaceAllString(name+" ", "")
				name = strings.TrimSpace(name)
				if !nameOnlyRE.MatchString(name) {
					continue
				}
				value := ""
				if len(parts) == 2 {
					value = strings.TrimSpace(parts[1])
				}
				mod.Parameters[name] = value
			}

		default:
			kind := netKind(keyword)
			width := 1
			if wm := widthRE.FindStringSubmatch(rest); wm != nil {
				width = atoiSafe(wm[1]) - atoiSafe(wm[2]) + 1
			}
			cleaned := widthRE.ReplaceAllString(rest, "")
			cleaned = typeWordRE.ReplaceAllString(cleaned, "")
			for _, item := range strings.Split(cleaned, ",") {
				item = strings.TrimSpace(strings.SplitN(item, "=", 2)[0])
				item = strings.TrimSpace(item)
				if !nameOnlyRE.MatchString(item) {
					continue
				}
				mod.Nets[item] = ir.NetDecl{Name: item, Width: width, Kind: kind}
			}
		}
	}
}

func netKind(keyword string) ir.NetKind {
	switch keyword {
	case "wire":
		return ir.Wire
	case "reg", "logic":
		return ir.RegLogic
	case "int":
		return ir.IntNet
	case "real":
		return ir.RealNet
	default:
		return ir.Unresolved
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
