// Package procparse turns one lex.ProcessSpan into a fully populated
// ir.Process: its trigger set, its anchor points, and its ordered list of
// signal references, each tagged read/write and blocking/non-blocking.
package procparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hdl-tools/vracer/internal/ir"
	"github.com/hdl-tools/vracer/internal/lex"
)

// ParseError mirrors lex.ParseError. Offsets of errors found while walking
// a process body are relative to that body; an empty sensitivity list is
// reported at the process's offset within the module body.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Reason)
}

// Diagnostic is a non-fatal note surfaced while parsing a process body.
type Diagnostic struct {
	Kind    string
	Message string
	Offset  int
}

var keywords = map[string]bool{
	"begin": true, "end": true, "if": true, "else": true, "case": true,
	"casex": true, "casez": true, "endcase": true, "for": true, "while": true,
	"assign": true, "always": true, "always_ff": true, "always_comb": true,
	"always_latch": true, "initial": true, "final": true, "posedge": true,
	"negedge": true, "or": true, "and": true, "not": true, "xor": true,
	"nand": true, "nor": true, "xnor": true, "module": true, "endmodule": true,
	"disable": true, "wait": true, "default": true, "fork": true, "join": true,
	"join_any": true, "join_none": true, "repeat": true, "do": true,
}

var (
	sizedLiteralRE = regexp.MustCompile(`\d+\s*'\s*[sS]?[bBhHdDoO][0-9a-fA-FxXzZ_]*`)
	identifierRE   = regexp.MustCompile(`\$?[A-Za-z_][A-Za-z0-9_$]*`)
	lhsOpRE        = regexp.MustCompile(`^(\w+)\s*(<=|\+\+|--|<<=|>>=|\+=|-=|\*=|/=|%=|&=|\|=|\^=|=)`)
)

// compoundOps produce both a read and a blocking write of the LHS.
var compoundOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	"++": true, "--": true,
}

// Parse builds an *ir.Process from a located process span. label is the
// already-resolved process label (explicit source label or synthesized
// c_<kind>_<index> fallback from the IR builder).
func Parse(span lex.ProcessSpan, kind ir.ProcessKind, label string) (*ir.Process, []Diagnostic, error) {
	p := &ir.Process{Kind: kind, Label: label}

	entryDesc, triggers, err := buildTriggerSet(span, kind)
	if err != nil {
		return nil, nil, err
	}
	p.TriggerSet = triggers
	p.AnchorPoints = []ir.Anchor{{ID: 0, Label: fmt.Sprintf("%s@%s", label, entryDesc)}}

	st := &state{label: label, anchorID: 0}
	st.anchors = append(st.anchors, p.AnchorPoints[0])

	body := span.Body
	if kind == ir.AlwaysComb && span.Keyword == "assign" {
		// Continuous assignment: "lhs = rhs;" already isolated as the
		// whole body by the extractor.
		if err := st.parseAssignmentStatement(body, true /*forceBlocking*/); err != nil {
			return nil, nil, err
		}
	} else if err := st.walk(body); err != nil {
		return nil, nil, err
	}

	p.References = st.refs
	p.AnchorPoints = st.anchors
	return p, st.diags, nil
}

// buildTriggerSet computes the literal trigger_set (spec §4.2) and a short
// human description for the entry anchor label.
func buildTriggerSet(span lex.ProcessSpan, kind ir.ProcessKind) (string, []ir.Trigger, error) {
	switch kind {
	case ir.Initial, ir.Final:
		return "none", []ir.Trigger{{Kind: ir.NoneInitial}}, nil
	case ir.AlwaysComb, ir.AlwaysLatch:
		return "*", []ir.Trigger{{Kind: ir.StarImplicit}}, nil
	}

	if span.Keyword == "assign" {
		// The trigger set derives from the RHS read set, which isn't
		// known until the assignment is parsed. The literal set is the
		// StarImplicit sentinel; EffectiveTriggers expands it to the read
		// set at detector time (same expansion path as always_comb).
		return "*", []ir.Trigger{{Kind: ir.StarImplicit}}, nil
	}

	if !span.HasSensitivity {
		return "none", nil, nil
	}
	if span.SensitivityText == "*" {
		return "*", []ir.Trigger{{Kind: ir.StarImplicit}}, nil
	}

	items := splitSensitivity(span.SensitivityText)
	var triggers []ir.Trigger
	var descs []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		lower := strings.ToLower(item)
		switch {
		case strings.HasPrefix(lower, "posedge "):
			sig := strings.TrimSpace(item[len("posedge "):])
			triggers = append(triggers, ir.Trigger{Kind: ir.EdgePos, Signal: sig})
			descs = append(descs, sig)
		case strings.HasPrefix(lower, "negedge "):
			sig := strings.TrimSpace(item[len("negedge "):])
			triggers = append(triggers, ir.Trigger{Kind: ir.EdgeNeg, Signal: sig})
			descs = append(descs, sig)
		default:
			triggers = append(triggers, ir.Trigger{Kind: ir.Level, Signal: item})
			descs = append(descs, item)
		}
	}
	if len(triggers) == 0 {
		return "", nil, &ParseError{Reason: "empty sensitivity list", Offset: span.Offset}
	}
	return strings.Join(descs, ","), triggers, nil
}

var orSplitRE = regexp.MustCompile(`(?i)\s+or\s+|\s*,\s*`)

func splitSensitivity(s string) []string {
	return orSplitRE.Split(s, -1)
}

// state accumulates anchors and references while walking a process body.
type state struct {
	label    string
	anchorID int
	anchors  []ir.Anchor
	refs     []ir.SignalReference
	diags    []Diagnostic
}

func (s *state) currentAnchor() int {
	return s.anchors[len(s.anchors)-1].ID
}

func (s *state) newAnchor(desc string) int {
	s.anchorID++
	id := s.anchorID
	s.anchors = append(s.anchors, ir.Anchor{ID: id, Label: fmt.Sprintf("%s@%s#%d", s.label, desc, id)})
	return id
}

func (s *state) addRead(name string) {
	s.refs = append(s.refs, ir.SignalReference{
		SignalName: name, Mode: ir.Read, Assignment: ir.AssignmentNA, AnchorID: s.currentAnchor(),
	})
}

func (s *state) addWrite(name string, kind ir.AssignmentKind) {
	s.refs = append(s.refs, ir.SignalReference{
		SignalName: name, Mode: ir.Write, Assignment: kind, AnchorID: s.currentAnchor(),
	})
}

func (s *state) addReadsFromExpr(expr string) {
	for _, id := range extractIdentifiers(expr) {
		s.addRead(id)
	}
}

// walk processes a sequence of statements, recursing into if/else, begin
// blocks, and case/casex/casez/endcase regions.
func (s *state) walk(text string) error {
	pos := 0
	for {
		pos = skipWS(text, pos)
		if pos >= len(text) {
			return nil
		}

		switch {
		case matchesKeyword(text, pos, "begin"):
			content, end, err := consumeBeginBlock(text, pos)
			if err != nil {
				return err
			}
			if err := s.walk(content); err != nil {
				return err
			}
			pos = end

		case matchesKeyword(text, pos, "if"):
			next, err := s.handleIf(text, pos)
			if err != nil {
				return err
			}
			pos = next

		case matchesKeyword(text, pos, "case") || matchesKeyword(text, pos, "casex") || matchesKeyword(text, pos, "casez"):
			next, err := s.handleCase(text, pos)
			if err != nil {
				return err
			}
			pos = next

		case text[pos] == '@':
			next, err := s.handleEventControl(text, pos)
			if err != nil {
				return err
			}
			pos = next

		case matchesKeyword(text, pos, "wait"):
			next, err := s.handleWait(text, pos)
			if err != nil {
				return err
			}
			pos = next

		case matchesKeyword(text, pos, "disable"):
			end := findStatementEnd(text, pos)
			pos = end

		case matchesKeyword(text, pos, "assert"):
			next, err := s.handleAssert(text, pos)
			if err != nil {
				return err
			}
			pos = next

		case pos < len(text) && text[pos] == '$':
			end := findStatementEnd(text, pos)
			s.addReadsFromExpr(text[pos:end])
			pos = end + 1

		case isAssignmentAt(text, pos):
			end := findStatementEnd(text, pos)
			if err := s.parseAssignmentStatement(text[pos:end+1], false); err != nil {
				return err
			}
			pos = end + 1

		default:
			end := findStatementEnd(text, pos)
			if end < pos {
				s.diags = append(s.diags, Diagnostic{
					Kind: "UnsupportedConstruct", Offset: pos,
					Message: "unrecognized construct: " + truncate(text[pos:], 40),
				})
				return nil
			}
			s.diags = append(s.diags, Diagnostic{
				Kind: "UnsupportedConstruct", Offset: pos,
				Message: "unrecognized statement: " + truncate(text[pos:end+1], 40),
			})
			pos = end + 1
		}
	}
}

func (s *state) handleIf(text string, pos int) (int, error) {
	pos += len("if")
	pos = skipWS(text, pos)
	if pos >= len(text) || text[pos] != '(' {
		return 0, &ParseError{Reason: "malformed if condition", Offset: pos}
	}
	close, err := matchParen(text, pos)
	if err != nil {
		return 0, &ParseError{Reason: "unbalanced if condition", Offset: pos}
	}
	s.addReadsFromExpr(text[pos+1 : close])
	pos = skipWS(text, close+1)

	pos, err = s.consumeStatementUnit(text, pos)
	if err != nil {
		return 0, err
	}
	pos = skipWS(text, pos)
	if matchesKeyword(text, pos, "else") {
		pos += len("else")
		pos = skipWS(text, pos)
		pos, err = s.consumeStatementUnit(text, pos)
		if err != nil {
			return 0, err
		}
	}
	return pos, nil
}

// consumeStatementUnit processes exactly one statement (begin-block, nested
// if, or a single ';'-terminated statement) and returns the offset right
// after it.
func (s *state) consumeStatementUnit(text string, pos int) (int, error) {
	pos = skipWS(text, pos)
	switch {
	case matchesKeyword(text, pos, "begin"):
		content, end, err := consumeBeginBlock(text, pos)
		if err != nil {
			return 0, err
		}
		return end, s.walk(content)
	case matchesKeyword(text, pos, "if"):
		return s.handleIf(text, pos)
	default:
		end := findStatementEnd(text, pos)
		if end < pos {
			return len(text), nil
		}
		if err := s.walkOneStatement(text[pos : end+1]); err != nil {
			return 0, err
		}
		return end + 1, nil
	}
}

// walkOneStatement handles a single already-isolated ';'-terminated
// statement (no nested control constructs).
func (s *state) walkOneStatement(stmt string) error {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "$") {
		s.addReadsFromExpr(trimmed)
		return nil
	}
	if isAssignmentAt(trimmed, 0) {
		return s.parseAssignmentStatement(trimmed, false)
	}
	s.diags = append(s.diags, Diagnostic{
		Kind: "UnsupportedConstruct", Message: "unrecognized statement: " + truncate(trimmed, 40),
	})
	return nil
}

func (s *state) handleCase(text string, pos int) (int, error) {
	_, end := readWord(text, pos)
	pos = skipWS(text, end)
	if pos >= len(text) || text[pos] != '(' {
		return 0, &ParseError{Reason: "malformed case expression", Offset: pos}
	}
	close, err := matchParen(text, pos)
	if err != nil {
		return 0, &ParseError{Reason: "unbalanced case expression", Offset: pos}
	}
	s.addReadsFromExpr(text[pos+1 : close])
	pos = close + 1

	endcaseIdx := indexKeyword(text, pos, "endcase")
	if endcaseIdx < 0 {
		return 0, &ParseError{Reason: "missing endcase", Offset: pos}
	}
	inner := text[pos:endcaseIdx]
	if err := s.walkCaseItems(inner); err != nil {
		return 0, err
	}
	return endcaseIdx + len("endcase"), nil
}

// walkCaseItems handles "value, value2: stmt;" / "default: stmt;" items by
// treating each item's value list as reads and recursing into its
// statement unit.
func (s *state) walkCaseItems(text string) error {
	pos := 0
	for {
		pos = skipWS(text, pos)
		if pos >= len(text) {
			return nil
		}
		colon := indexTopLevelByte(text, pos, ':')
		if colon < 0 {
			return nil
		}
		guard := text[pos:colon]
		if !matchesKeyword(guard, 0, "default") {
			s.addReadsFromExpr(guard)
		}
		next, err := s.consumeStatementUnit(text, colon+1)
		if err != nil {
			return err
		}
		pos = next
	}
}

func (s *state) handleEventControl(text string, pos int) (int, error) {
	pos++
	pos = skipWS(text, pos)
	var desc string
	switch {
	case pos < len(text) && text[pos] == '(':
		close, err := matchParen(text, pos)
		if err != nil {
			return 0, &ParseError{Reason: "unbalanced event control", Offset: pos}
		}
		inner := text[pos+1 : close]
		desc = strings.TrimSpace(inner)
		s.addEventReads(inner)
		pos = close + 1
	case pos < len(text) && text[pos] == '*':
		desc = "*"
		pos++
	default:
		word, end := readWord(text, pos)
		if word == "" {
			return 0, &ParseError{Reason: "malformed event control", Offset: pos}
		}
		desc = word
		s.addRead(word)
		pos = end
	}
	s.newAnchor(desc)
	pos = skipWS(text, pos)
	if pos < len(text) && text[pos] == ';' {
		pos++
	}
	return pos, nil
}

// addEventReads records reads for the signal(s) named inside an event
// control expression, stripping posedge/negedge qualifiers.
func (s *state) addEventReads(expr string) {
	for _, item := range splitSensitivity(expr) {
		item = strings.TrimSpace(item)
		lower := strings.ToLower(item)
		switch {
		case strings.HasPrefix(lower, "posedge "):
			s.addRead(strings.TrimSpace(item[len("posedge "):]))
		case strings.HasPrefix(lower, "negedge "):
			s.addRead(strings.TrimSpace(item[len("negedge "):]))
		case item != "":
			s.addRead(item)
		}
	}
}

func (s *state) handleWait(text string, pos int) (int, error) {
	pos += len("wait")
	pos = skipWS(text, pos)
	if pos >= len(text) || text[pos] != '(' {
		return 0, &ParseError{Reason: "malformed wait expression", Offset: pos}
	}
	close, err := matchParen(text, pos)
	if err != nil {
		return 0, &ParseError{Reason: "unbalanced wait expression", Offset: pos}
	}
	expr := text[pos+1 : close]
	s.addReadsFromExpr(expr)
	s.newAnchor("wait(" + strings.TrimSpace(expr) + ")")
	pos = skipWS(text, close+1)
	if pos < len(text) && text[pos] == ';' {
		pos++
	}
	return pos, nil
}

func (s *state) handleAssert(text string, pos int) (int, error) {
	pos += len("assert")
	pos = skipWS(text, pos)
	if pos >= len(text) || text[pos] != '(' {
		return 0, &ParseError{Reason: "malformed assert expression", Offset: pos}
	}
	close, err := matchParen(text, pos)
	if err != nil {
		return 0, &ParseError{Reason: "unbalanced assert expression", Offset: pos}
	}
	s.addReadsFromExpr(text[pos+1 : close])
	pos = skipWS(text, close+1)
	if pos < len(text) && text[pos] == ';' {
		return pos + 1, nil
	}
	if matchesKeyword(text, pos, "else") {
		pos += len("else")
		return s.consumeStatementUnit(text, pos)
	}
	return pos, nil
}

// parseAssignmentStatement classifies a single LHS-op-RHS statement as
// blocking or non-blocking, recording the write and, for compound
// operators, the accompanying read of the LHS (spec §9).
func (s *state) parseAssignmentStatement(stmt string, forceBlocking bool) error {
	trimmed := strings.TrimSpace(stmt)
	m := lhsOpRE.FindStringSubmatch(trimmed)
	if m == nil {
		s.diags = append(s.diags, Diagnostic{
			Kind: "UnsupportedConstruct", Message: "unrecognized assignment: " + truncate(trimmed, 40),
		})
		return nil
	}
	lhs := m[1]
	op := m[2]
	rest := strings.TrimSuffix(strings.TrimSpace(trimmed[len(m[0]):]), ";")

	kind := ir.Blocking
	if !forceBlocking && op == "<=" {
		kind = ir.Nonblocking
	}

	if compoundOps[op] {
		s.addRead(lhs)
	}
	s.addWrite(lhs, kind)
	if op != "++" && op != "--" {
		s.addReadsFromExpr(rest)
	}
	return nil
}

func isAssignmentAt(text string, pos int) bool {
	return lhsOpRE.MatchString(text[pos:])
}

func extractIdentifiers(expr string) []string {
	clean := sizedLiteralRE.ReplaceAllString(expr, " ")
	matches := identifierRE.FindAllString(clean, -1)
	var out []string
	for _, m := range matches {
		if strings.HasPrefix(m, "$") {
			continue
		}
		if keywords[strings.ToLower(m)] {
			continue
		}
		if isAllDigits(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func matchesKeyword(text string, pos int, kw string) bool {
	if pos < 0 || pos+len(kw) > len(text) {
		return false
	}
	if text[pos:pos+len(kw)] != kw {
		return false
	}
	if pos > 0 && isWordChar(text[pos-1]) {
		return false
	}
	end := pos + len(kw)
	return end >= len(text) || !isWordChar(text[end])
}

func indexKeyword(text string, from int, kw string) int {
	for i := from; i+len(kw) <= len(text); i++ {
		if matchesKeyword(text, i, kw) {
			return i
		}
	}
	return -1
}

func indexTopLevelByte(text string, from int, b byte) int {
	depth := 0
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if text[i] == b && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// consumeBeginBlock mirrors lex's block matcher for use within a process
// body (if/case bodies can themselves contain begin...end).
func consumeBeginBlock(text string, pos int) (content string, end int, err error) {
	cursor := pos + len("begin")
	depth := 1
	inner := cursor
	for {
		idx, kw := nextBlockKeyword(text, cursor)
		if idx < 0 {
			return "", 0, &ParseError{Reason: "unbalanced begin/end", Offset: pos}
		}
		if kw == "begin" || kw == "fork" || kw == "case" || kw == "casex" || kw == "casez" {
			depth++
		} else {
			depth--
		}
		kwEnd := idx + len(kw)
		if depth == 0 {
			bodyText := text[inner:idx]
			if lm := strings.TrimSpace(bodyText); strings.HasPrefix(lm, ":") {
				_, wend := readWord(lm, skipWS(lm, 1))
				_ = wend
				// Strip "identifier" label prefix; the label is inner-block
				// scoped and not surfaced (process label comes from the
				// outer process span).
				rest := strings.TrimSpace(lm[1:])
				if id := identifierRE.FindStringIndex(rest); id != nil && id[0] == 0 {
					bodyText = rest[id[1]:]
				}
			}
			return bodyText, kwEnd, nil
		}
		cursor = kwEnd
	}
}

func nextBlockKeyword(text string, from int) (int, string) {
	opts := []string{"begin", "fork", "casex", "casez", "case", "join_any", "join_none", "join", "endcase", "end"}
	for i := from; i < len(text); i++ {
		for _, kw := range opts {
			if matchesKeyword(text, i, kw) {
				return i, kw
			}
		}
	}
	return -1, ""
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

// findStatementEnd returns the index of the top-level ';' terminating the
// statement starting at pos, or pos-1 if none is found.
func findStatementEnd(text string, pos int) int {
	depth := 0
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ';':
			if depth == 0 {
				return i
			}
		}
	}
	return pos - 1
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

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
