// Package dtparse implements the Devicetree grammar (spec.md §4.2, C2): a
// recursive-descent parser over internal/dtlex tokens that builds a
// pkg/dtast tree. Parse errors never abort the run — on a malformed node
// body member the parser resynchronizes to the next ';' or '}' and keeps
// going, returning a possibly-partial tree alongside the accumulated
// errors, mirroring internal/regtext/parser.go's line-level recovery
// adapted to DT's nested-brace grammar.
package dtparse

import (
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/internal/dtlex"
	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
)

type parser struct {
	toks []dtlex.Token
	pos  int
	errs []*diag.Error

	pendingComments   []dtast.Comment
	pendingDirectives []dtast.Directive
}

// Parse turns a token stream into a multi-root tree (spec.md §3.1:
// "Multiple root nodes may exist"). It never returns a nil tree, even when
// every construct fails to parse (P3: never abort silently).
func Parse(toks []dtlex.Token) (*dtast.Tree, []*diag.Error) {
	p := &parser{toks: toks}
	tree := dtast.NewTree()

	for {
		p.collectTrivia()
		if p.atEOF() {
			break
		}
		node, ok := p.parseRoot()
		if !ok {
			p.resyncTopLevel()
			continue
		}
		node.Comments = append(node.Comments, p.takeComments()...)
		node.Directives = append(node.Directives, p.takeDirectives()...)
		tree.AddRoot(node)
	}
	return tree, p.errs
}

// --- token cursor -----------------------------------------------------

func (p *parser) atEOF() bool { return p.pos >= len(p.toks) || p.toks[p.pos].Type == dtlex.EOF }

func (p *parser) peek() dtlex.Token {
	if p.pos >= len(p.toks) {
		return dtlex.Token{Type: dtlex.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) dtlex.Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return dtlex.Token{Type: dtlex.EOF}
	}
	return p.toks[idx]
}

func (p *parser) advance() dtlex.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) check(tt dtlex.TokenType) bool { return p.peek().Type == tt }

func (p *parser) match(tt dtlex.TokenType) (dtlex.Token, bool) {
	if p.check(tt) {
		return p.advance(), true
	}
	return dtlex.Token{}, false
}

func (p *parser) fail(err *diag.Error, pos diag.Pos) {
	p.errs = append(p.errs, err.At(pos))
}

// collectTrivia absorbs comments and preprocessor lines into the pending
// buffers, to be attached to the node whose body encloses them (or, at
// top level, to the root parsed next) (§3.1: "comments attached to a
// node are owned by that node").
func (p *parser) collectTrivia() {
	for {
		switch p.peek().Type {
		case dtlex.Comment:
			t := p.advance()
			p.pendingComments = append(p.pendingComments, dtast.Comment{
				Text:    t.Raw,
				IsBlock: strings.HasPrefix(t.Raw, "/*"),
				Pos:     t.Pos,
			})
		case dtlex.Preprocessor:
			t := p.advance()
			p.pendingDirectives = append(p.pendingDirectives, parseDirective(t))
		default:
			return
		}
	}
}

func parseDirective(t dtlex.Token) dtast.Directive {
	body := strings.TrimPrefix(t.Raw, "#")
	fields := strings.SplitN(strings.TrimSpace(body), " ", 2)
	name := fields[0]
	condition := ""
	if len(fields) > 1 {
		condition = strings.TrimSpace(fields[1])
	}
	return dtast.Directive{Name: name, Condition: condition, Pos: t.Pos}
}

func (p *parser) takeComments() []dtast.Comment {
	c := p.pendingComments
	p.pendingComments = nil
	return c
}

func (p *parser) takeDirectives() []dtast.Directive {
	d := p.pendingDirectives
	p.pendingDirectives = nil
	return d
}

// resyncTopLevel skips one token at a time until a plausible root-level
// construct start is found, guaranteeing forward progress even on total
// garbage input.
func (p *parser) resyncTopLevel() {
	start := p.peek().Pos
	p.fail(diag.ErrUnexpectedToken, start)
	if p.atEOF() {
		return
	}
	p.advance()
	for !p.atEOF() {
		switch p.peek().Type {
		case dtlex.Slash, dtlex.Reference, dtlex.Identifier:
			return
		}
		p.advance()
	}
}

// resyncMember advances to the next ';' or '}' (consuming the ';' if
// found), per spec.md §4.2's node-body error recovery rule.
func (p *parser) resyncMember() {
	for !p.atEOF() {
		switch p.peek().Type {
		case dtlex.Semicolon:
			p.advance()
			return
		case dtlex.RBrace:
			return
		}
		p.advance()
	}
}

// --- root-level constructs ---------------------------------------------

// parseRoot recognizes: "/ { ... };", "&label { ... };", and
// "label: name[@addr] { ... };" / "name[@addr] { ... };" stray top-level
// nodes (spec.md §4.2).
func (p *parser) parseRoot() (*dtast.Node, bool) {
	switch p.peek().Type {
	case dtlex.Slash:
		slashTok := p.advance()
		node, ok := p.parseNodeBody("/", "", "", slashTok.Pos)
		if !ok {
			return nil, false
		}
		if !p.expectSemicolon() {
			return nil, false
		}
		return node, true
	case dtlex.Reference:
		refTok := p.advance()
		name := strings.TrimPrefix(refTok.Raw, "&")
		node, ok := p.parseNodeBody(name, name, "", refTok.Pos)
		if !ok {
			return nil, false
		}
		if !p.expectSemicolon() {
			return nil, false
		}
		return node, true
	case dtlex.Identifier:
		return p.parseLabeledOrBareNode()
	default:
		return nil, false
	}
}

func (p *parser) parseLabeledOrBareNode() (*dtast.Node, bool) {
	first := p.advance()
	label := ""
	name := first.Raw
	startPos := first.Pos

	if p.check(dtlex.Colon) {
		p.advance()
		nameTok, ok := p.match(dtlex.Identifier)
		if !ok {
			p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
			return nil, false
		}
		label = first.Raw
		name = nameTok.Raw
	}

	unitAddr := ""
	if p.check(dtlex.At) {
		p.advance()
		addrTok, ok := p.parseUnitAddress()
		if !ok {
			return nil, false
		}
		unitAddr = addrTok
	}

	if !p.check(dtlex.LBrace) {
		// Not a node header after all — shouldn't happen for a well-formed
		// top-level construct; treat as a parse failure so the caller
		// resyncs rather than silently dropping tokens.
		p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
		return nil, false
	}

	node, ok := p.parseNodeBody(name, label, unitAddr, startPos)
	if !ok {
		return nil, false
	}
	if !p.expectSemicolon() {
		return nil, false
	}
	return node, true
}

// parseUnitAddress accepts one or more identifier/number tokens joined by
// commas (multi-cell unit addresses like "40,0") as raw text.
func (p *parser) parseUnitAddress() (string, bool) {
	var b strings.Builder
	for {
		switch p.peek().Type {
		case dtlex.Identifier, dtlex.Number:
			b.WriteString(p.advance().Raw)
		default:
			p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
			return "", false
		}
		if p.check(dtlex.Comma) {
			p.advance()
			b.WriteString(",")
			continue
		}
		return b.String(), true
	}
}

func (p *parser) expectSemicolon() bool {
	if _, ok := p.match(dtlex.Semicolon); ok {
		return true
	}
	p.fail(diag.ErrMissingTerminator, p.peek().Pos)
	return false
}

// --- node body -----------------------------------------------------------

// parseNodeBody expects the current token to be '{', and consumes through
// the matching '}' (but not the trailing ';', which the caller owns since
// reference-node and root forms both require it).
func (p *parser) parseNodeBody(name, label, unitAddr string, startPos diag.Pos) (*dtast.Node, bool) {
	if _, ok := p.match(dtlex.LBrace); !ok {
		p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
		return nil, false
	}

	node := dtast.NewNode(name)
	node.Label = label
	node.UnitAddress = unitAddr
	node.Pos = startPos

	for {
		p.collectTrivia()
		if p.check(dtlex.RBrace) {
			p.advance()
			node.Comments = append(node.Comments, p.takeComments()...)
			node.Directives = append(node.Directives, p.takeDirectives()...)
			return node, true
		}
		if p.atEOF() {
			p.fail(diag.ErrMissingTerminator, p.peek().Pos)
			node.Comments = append(node.Comments, p.takeComments()...)
			node.Directives = append(node.Directives, p.takeDirectives()...)
			return node, true
		}
		if !p.parseMember(node) {
			p.resyncMember()
		}
	}
}

// parseMember parses one property or child-node declaration inside a node
// body, attaching any trivia collected immediately before it.
func (p *parser) parseMember(parent *dtast.Node) bool {
	comments := p.takeComments()
	directives := p.takeDirectives()
	parent.Comments = append(parent.Comments, comments...)
	parent.Directives = append(parent.Directives, directives...)

	if !p.check(dtlex.Identifier) {
		p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
		return false
	}

	// Disambiguate child node vs property by lookahead, since both start
	// with IDENT: "label:" or "@addr" or "{" commits to a child node;
	// "=" or ";" commits to a property.
	if p.peekAt(1).Type == dtlex.Colon || p.peekAt(1).Type == dtlex.At || p.peekAt(1).Type == dtlex.LBrace {
		child, ok := p.parseLabeledOrBareNode()
		if !ok {
			return false
		}
		parent.AddChild(child)
		return true
	}

	return p.parseProperty(parent)
}

func (p *parser) parseProperty(parent *dtast.Node) bool {
	nameTok := p.advance()
	prop := &dtast.Property{Name: nameTok.Raw, Pos: nameTok.Pos}

	if _, ok := p.match(dtlex.Equals); ok {
		val, ok := p.parseValueList()
		if !ok {
			return false
		}
		prop.Value = &val
	}

	if !p.expectSemicolon() {
		return false
	}
	parent.SetProperty(prop)
	return true
}

// --- property values -------------------------------------------------

// parseValueList parses one or more comma-separated value units,
// concatenating multiple units into a single ARRAY (spec.md §4.2: "all
// are concatenated into a single ARRAY"). The elements of each bracketed
// unit ("<...>" or "[...]") are spliced in; any other unit is appended
// as one element.
func (p *parser) parseValueList() (dtast.Value, bool) {
	var values []dtast.Value
	for {
		v, ok := p.parseValueUnit()
		if !ok {
			return dtast.Value{}, false
		}
		values = append(values, v)
		if _, ok := p.match(dtlex.Comma); ok {
			continue
		}
		break
	}
	if len(values) == 1 {
		return values[0], true
	}
	var elems []dtast.Value
	for _, v := range values {
		if v.Kind == dtast.KindArray && v.Str == "" {
			elems = append(elems, v.Elements...)
			continue
		}
		elems = append(elems, v)
	}
	return dtast.ArrayValue(elems, joinRaw(values)), true
}

func (p *parser) parseValueUnit() (dtast.Value, bool) {
	switch p.peek().Type {
	case dtlex.String:
		t := p.advance()
		return dtast.StringValue(unescapeString(t.Raw), t.Raw), true
	case dtlex.Number:
		t := p.advance()
		n, _ := parseIntLiteral(t.Raw)
		return dtast.IntValue(n, t.Raw), true
	case dtlex.Reference:
		t := p.advance()
		return dtast.ReferenceValue(strings.TrimPrefix(t.Raw, "&"), t.Raw), true
	case dtlex.AngleOpen:
		return p.parseAngleArray()
	case dtlex.LBrack:
		return p.parseByteArray()
	case dtlex.Identifier:
		t := p.advance()
		return dtast.StringValue(t.Raw, t.Raw), true
	default:
		p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
		return dtast.Value{}, false
	}
}

// parseAngleArray parses "< ... >" content: a whitespace-separated
// sequence of identifiers, numbers, references, and (crucially) nested
// function-call expressions like "LA(LC(LSHFT))", which are reassembled
// atomically here rather than left as separate tokens (spec.md §4.2).
// Elements are returned in raw left-to-right order; the reference/param
// *binding* grouping rule (also §4.2) is a separate, reusable step — see
// GroupBindingValues — applied downstream by the behavior converter and
// layer decoder, which need it against already-assembled arrays of either
// shape (angle-bracket or flattened template text).
func (p *parser) parseAngleArray() (dtast.Value, bool) {
	p.advance() // '<'
	var elems []dtast.Value
	for !p.check(dtlex.AngleClose) {
		if p.atEOF() {
			p.fail(diag.ErrMissingTerminator, p.peek().Pos)
			return dtast.Value{}, false
		}
		el, ok := p.parseArrayElement()
		if !ok {
			p.resyncArrayElement(dtlex.AngleClose)
			continue
		}
		elems = append(elems, el)
	}
	p.advance() // '>'
	return dtast.ArrayValue(elems, "<"+joinRaw(elems)+">"), true
}

func (p *parser) parseByteArray() (dtast.Value, bool) {
	p.advance() // '['
	var elems []dtast.Value
	for !p.check(dtlex.RBrack) {
		if p.atEOF() {
			p.fail(diag.ErrMissingTerminator, p.peek().Pos)
			return dtast.Value{}, false
		}
		switch p.peek().Type {
		case dtlex.Number, dtlex.Identifier:
			t := p.advance()
			n, err := strconv.ParseInt(t.Raw, 16, 64)
			if err != nil {
				elems = append(elems, dtast.StringValue(t.Raw, t.Raw))
				continue
			}
			elems = append(elems, dtast.IntValue(n, t.Raw))
		default:
			p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
			p.resyncArrayElement(dtlex.RBrack)
		}
	}
	p.advance() // ']'
	return dtast.ArrayValue(elems, "["+joinRaw(elems)+"]"), true
}

// parseArrayElement handles one element inside "< ... >": a reference, a
// bare identifier (optionally the head of a nested function call), a
// number, or a string.
func (p *parser) parseArrayElement() (dtast.Value, bool) {
	switch p.peek().Type {
	case dtlex.Reference:
		t := p.advance()
		return dtast.ReferenceValue(strings.TrimPrefix(t.Raw, "&"), t.Raw), true
	case dtlex.Number:
		t := p.advance()
		n, _ := parseIntLiteral(t.Raw)
		return dtast.IntValue(n, t.Raw), true
	case dtlex.String:
		t := p.advance()
		return dtast.StringValue(unescapeString(t.Raw), t.Raw), true
	case dtlex.Identifier:
		t := p.advance()
		if p.check(dtlex.LPar) {
			return p.parseFunctionCall(t)
		}
		return dtast.StringValue(t.Raw, t.Raw), true
	default:
		p.fail(diag.ErrUnexpectedToken, p.peek().Pos)
		return dtast.Value{}, false
	}
}

// parseFunctionCall reassembles "IDENT LPAR ... RPAR" atomically into one
// Value: an ARRAY whose Str field carries the call name and whose
// Elements carry the (possibly themselves nested) arguments, mirroring
// the recursive LayoutParam shape spec.md §3.2 describes for
// LG(LA(LC(LSHFT))).
func (p *parser) parseFunctionCall(nameTok dtlex.Token) (dtast.Value, bool) {
	p.advance() // '('
	var args []dtast.Value
	for !p.check(dtlex.RPar) {
		if p.atEOF() {
			p.fail(diag.ErrMissingTerminator, p.peek().Pos)
			return dtast.Value{}, false
		}
		arg, ok := p.parseArrayElement()
		if !ok {
			p.resyncArrayElement(dtlex.RPar)
			continue
		}
		args = append(args, arg)
	}
	p.advance() // ')'
	raw := nameTok.Raw + "(" + joinRaw(args) + ")"
	v := dtast.ArrayValue(args, raw)
	v.Str = nameTok.Raw
	return v, true
}

// resyncArrayElement skips a single bad token so array parsing makes
// progress toward the given closing delimiter instead of looping forever.
func (p *parser) resyncArrayElement(closing dtlex.TokenType) {
	if p.check(closing) || p.atEOF() {
		return
	}
	p.advance()
}

func joinRaw(values []dtast.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Raw
	}
	return strings.Join(parts, " ")
}

func unescapeString(raw string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(raw, `"`), `"`)
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t").Replace(trimmed)
}

func parseIntLiteral(raw string) (int64, error) {
	return strconv.ParseInt(raw, 0, 64)
}
