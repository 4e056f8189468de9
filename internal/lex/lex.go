// Package lex implements the structural extractor: a token-oriented (not
// full-grammar) scan that locates module boundaries, parameter/port/net
// declarations, and top-level process constructs within a module body.
//
// This is deliberately pattern-driven rather than a complete Verilog
// parser — see spec §4.1. The teacher repo in this lineage reached for
// Tree-sitter because it had a grammar for its own HDL; no Verilog grammar
// is available here, and the design calls for hand-rolled structural
// matching regardless, so the scanner below plays the role
// extractor.walkTree played there, minus the grammar.
package lex

import (
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports a structural imbalance (unterminated module,
// unbalanced begin/end, malformed sensitivity list) at a source offset.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Reason)
}

// Diagnostic is a non-fatal note: a recognized-but-unhandled construct, or
// an unresolved identifier. It never aborts extraction.
type Diagnostic struct {
	Kind    string // "UnsupportedConstruct"
	Message string
	Offset  int
}

// ProcessSpan is one process construct located inside a module body.
type ProcessSpan struct {
	Keyword         string // always, always_ff, always_comb, always_latch, initial, final, assign
	SensitivityText string // raw text inside @(...), "*", a bare @identifier, or "" (initial/final)
	HasSensitivity  bool
	Label           string // explicit "begin : label", else ""
	Body            string
	Offset          int
}

// ModuleBlock is one module's header text (name + parameter list) and body.
type ModuleBlock struct {
	Name       string
	HeaderText string
	Body       string
	Processes  []ProcessSpan
	Offset     int
}

var (
	moduleKeyword    = regexp.MustCompile(`\bmodule\b`)
	endmoduleKeyword = regexp.MustCompile(`\bendmodule\b`)
	moduleNameRE     = regexp.MustCompile(`\bmodule\s+(\w+)`)
	processKeywordRE = regexp.MustCompile(`\b(always_ff|always_comb|always_latch|always|initial|final|assign)\b`)
	blockKeywordRE   = regexp.MustCompile(`\b(begin|fork|casex|casez|case|join_any|join_none|join|endcase|end)\b`)
	labelRE          = regexp.MustCompile(`^\s*:\s*(\w+)`)
)

var blockOpeners = map[string]bool{
	"begin": true, "fork": true, "case": true, "casex": true, "casez": true,
}

// Extract scans source and returns the module blocks it finds, along with
// any non-fatal diagnostics. A structural imbalance aborts extraction of
// the whole file with a *ParseError.
func Extract(source string) ([]ModuleBlock, []Diagnostic, error) {
	clean := stripNoise(source)

	modStarts := moduleKeyword.FindAllStringIndex(clean, -1)
	modEnds := endmoduleKeyword.FindAllStringIndex(clean, -1)
	if len(modStarts) != len(modEnds) {
		off := 0
		if len(modStarts) > 0 {
			off = modStarts[len(modStarts)-1][0]
		}
		return nil, nil, &ParseError{Reason: "unbalanced module/endmodule", Offset: off}
	}

	var blocks []ModuleBlock
	var diags []Diagnostic

	for i := range modStarts {
		startOff := modStarts[i][0]
		endOff := modEnds[i][0]
		if endOff < startOff {
			return nil, nil, &ParseError{Reason: "endmodule precedes module", Offset: endOff}
		}
		headerMatch := moduleNameRE.FindStringSubmatchIndex(clean[startOff:])
		if headerMatch == nil {
			return nil, nil, &ParseError{Reason: "malformed module header", Offset: startOff}
		}
		name := clean[startOff+headerMatch[2] : startOff+headerMatch[3]]
		afterName := startOff + headerMatch[1]

		headerEnd, err := findTopLevelSemicolon(clean, afterName, endOff)
		body := ""
		header := ""
		if err != nil {
			// No top-level ';' before endmodule (e.g. empty port list with
			// no body declarations yet) — treat the whole span as body.
			header = strings.TrimSpace(clean[startOff:endOff])
			body = clean[afterName:endOff]
		} else {
			header = strings.TrimSpace(clean[startOff : headerEnd+1])
			body = clean[headerEnd+1 : endOff]
		}

		procs, procDiags, err := extractProcesses(body)
		if err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Offset += headerEndOffset(clean, afterName, headerEnd)
				return nil, nil, pe
			}
			return nil, nil, err
		}
		depth := 0
		for _, m := range blockKeywordRE.FindAllStringSubmatch(body, -1) {
			if blockOpeners[m[1]] {
				depth++
			} else {
				depth--
			}
		}
		if depth != 0 {
			return nil, nil, &ParseError{Reason: "unbalanced begin/end", Offset: headerEndOffset(clean, afterName, headerEnd)}
		}
		for _, d := range procDiags {
			d.Offset += headerEndOffset(clean, afterName, headerEnd)
			diags = append(diags, d)
		}

		blocks = append(blocks, ModuleBlock{
			Name:       name,
			HeaderText: header,
			Body:       body,
			Processes:  procs,
			Offset:     startOff,
		})
	}

	return blocks, diags, nil
}

func headerEndOffset(clean string, afterName, headerEnd int) int {
	if headerEnd < 0 {
		return afterName
	}
	return headerEnd + 1
}

// extractProcesses scans a module body for top-level process constructs.
func extractProcesses(body string) ([]ProcessSpan, []Diagnostic, error) {
	var spans []ProcessSpan
	var diags []Diagnostic

	cursor := 0
	for cursor < len(body) {
		rest := body[cursor:]
		m := processKeywordRE.FindStringSubmatchIndex(rest)
		if m == nil {
			break
		}
		kwStart := cursor + m[0]
		kwEnd := cursor + m[1]
		keyword := rest[m[2]:m[3]]

		span, next, diag, err := parseOneProcess(body, keyword, kwStart, kwEnd)
		if err != nil {
			return nil, nil, err
		}
		spans = append(spans, span)
		if diag != nil {
			diags = append(diags, *diag)
		}
		cursor = next
	}
	return spans, diags, nil
}

func parseOneProcess(body, keyword string, kwStart, kwEnd int) (ProcessSpan, int, *Diagnostic, error) {
	span := ProcessSpan{Keyword: keyword, Offset: kwStart}

	if keyword == "assign" {
		stmtEnd, err := findTopLevelSemicolon(body, kwEnd, len(body))
		if err != nil {
			return span, 0, nil, &ParseError{Reason: "unterminated continuous assignment", Offset: kwStart}
		}
		span.Body = strings.TrimSpace(body[kwEnd : stmtEnd+1])
		return span, stmtEnd + 1, nil, nil
	}

	cursor := skipWS(body, kwEnd)

	var diag *Diagnostic
	if cursor < len(body) && body[cursor] == '@' {
		span.HasSensitivity = true
		cursor++
		cursor = skipWS(body, cursor)
		if cursor < len(body) && body[cursor] == '(' {
			close, err := matchParen(body, cursor)
			if err != nil {
				return span, 0, nil, &ParseError{Reason: "unbalanced sensitivity list", Offset: kwStart}
			}
			span.SensitivityText = strings.TrimSpace(body[cursor+1 : close])
			cursor = close + 1
		} else if cursor < len(body) && body[cursor] == '*' {
			span.SensitivityText = "*"
			cursor++
		} else {
			word, end := readWord(body, cursor)
			if word == "" {
				return span, 0, nil, &ParseError{Reason: "malformed sensitivity list", Offset: kwStart}
			}
			span.SensitivityText = word
			cursor = end
		}
	} else if keyword == "always" || keyword == "always_ff" {
		diag = &Diagnostic{
			Kind:    "UnsupportedConstruct",
			Message: fmt.Sprintf("%s block without a sensitivity list", keyword),
			Offset:  kwStart,
		}
	}

	cursor = skipWS(body, cursor)

	if strings.HasPrefix(body[cursor:], "begin") && isWordBoundaryAfter(body, cursor, "begin") {
		content, label, end, err := matchBeginBlock(body, cursor)
		if err != nil {
			return span, 0, nil, err
		}
		span.Label = label
		span.Body = content
		return span, end, diag, nil
	}

	stmtEnd, err := findTopLevelSemicolon(body, cursor, len(body))
	if err != nil {
		return span, 0, nil, &ParseError{Reason: "unterminated process body", Offset: kwStart}
	}
	span.Body = strings.TrimSpace(body[cursor : stmtEnd+1])
	return span, stmtEnd + 1, diag, nil
}

// matchBeginBlock consumes a "begin [: label] ... end" block starting at
// pos (body[pos:] == "begin..."). Returns the statement content (with the
// optional label stripped), the label if present, and the offset right
// after the closing "end".
func matchBeginBlock(body string, pos int) (content, label string, end int, err error) {
	cursor := pos + len("begin")
	depth := 1

	inner := cursor
	for {
		rest := body[cursor:]
		m := blockKeywordRE.FindStringSubmatchIndex(rest)
		if m == nil {
			return "", "", 0, &ParseError{Reason: "unbalanced begin/end", Offset: pos}
		}
		kw := rest[m[2]:m[3]]
		kwAbsStart := cursor + m[0]
		kwAbsEnd := cursor + m[1]
		if blockOpeners[kw] {
			depth++
		} else {
			depth--
		}
		if depth == 0 {
			bodyText := body[inner:kwAbsStart]
			if lm := labelRE.FindStringSubmatchIndex(bodyText); lm != nil {
				label = bodyText[lm[2]:lm[3]]
				bodyText = bodyText[lm[1]:]
			}
			return strings.TrimSpace(bodyText), label, kwAbsEnd, nil
		}
		cursor = kwAbsEnd
	}
}

func matchParen(s string, pos int) (int, error) {
	depth := 0
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced parens")
}

// findTopLevelSemicolon finds the first ';' between [from, limit) that is
// not nested inside parentheses.
func findTopLevelSemicolon(s string, from, limit int) (int, error) {
	depth := 0
	for i := from; i < limit; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ';':
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("no top-level semicolon")
}

func skipWS(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isWordChar(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func readWord(s string, i int) (string, int) {
	start := i
	for i < len(s) && isWordChar(s[i]) {
		i++
	}
	return s[start:i], i
}

func isWordBoundaryAfter(s string, pos int, word string) bool {
	end := pos + len(word)
	return end >= len(s) || !isWordChar(s[end])
}

// stripNoise blanks line comments, block comments, string literals, and
// back-tick compiler directive lines, preserving byte length and line
// structure so offsets keep meaning for diagnostics.
func stripNoise(src string) string {
	out := []byte(src)
	n := len(out)
	i := 0
	for i < n {
		switch {
		case out[i] == '/' && i+1 < n && out[i+1] == '/':
			for i < n && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case out[i] == '/' && i+1 < n && out[i+1] == '*':
			out[i] = ' '
			out[i+1] = ' '
			i += 2
			for i+1 < n && !(out[i] == '*' && out[i+1] == '/') {
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i+1 < n {
				out[i] = ' '
				out[i+1] = ' '
				i += 2
			}
		case out[i] == '"':
			out[i] = ' '
			i++
			for i < n && out[i] != '"' {
				if out[i] == '\\' && i+1 < n {
					out[i] = ' '
					i++
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i < n {
				out[i] = ' '
				i++
			}
		case out[i] == '`':
			for i < n && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}
