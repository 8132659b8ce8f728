package layout

import (
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
)

// LayoutParam is a recursive binding parameter (spec.md §3.2): a scalar
// value plus its own ordered sub-params, used to represent function-call
// syntax such as the nested modifiers in "LG(LA(LC(LSHFT)))".
type LayoutParam struct {
	Value  any           `json:"value"`
	Params []LayoutParam `json:"params,omitempty"`
}

// Binding is a single key binding: a primary value (typically "&foo")
// plus its ordered parameters.
type Binding struct {
	Value  string        `json:"value"`
	Params []LayoutParam `json:"params,omitempty"`
}

// BindingFromGroup converts one binding group — as produced by
// internal/dtparse.GroupBindingValues — into a Binding. The group's first
// element is the behavior reference; the rest become top-level params.
func BindingFromGroup(group []dtast.Value) Binding {
	if len(group) == 0 {
		return Binding{}
	}
	head := group[0]
	value := head.Str
	if head.Kind == dtast.KindReference {
		value = "&" + value
	}
	params := make([]LayoutParam, 0, len(group)-1)
	for _, v := range group[1:] {
		params = append(params, paramFromValue(v))
	}
	return Binding{Value: value, Params: params}
}

func paramFromValue(v dtast.Value) LayoutParam {
	if v.Kind == dtast.KindArray && v.Str != "" {
		sub := make([]LayoutParam, 0, len(v.Elements))
		for _, e := range v.Elements {
			sub = append(sub, paramFromValue(e))
		}
		return LayoutParam{Value: v.Str, Params: sub}
	}
	switch v.Kind {
	case dtast.KindInteger:
		return LayoutParam{Value: v.Int}
	case dtast.KindBoolean:
		return LayoutParam{Value: v.Bool}
	default:
		return LayoutParam{Value: v.Str}
	}
}

// ParseBindingString implements the §4.6 "binding string parsing" helper:
// given a whitespace-delimited token stream, the first token is the
// behavior reference and the rest are parameters; parentheses denote
// function-call recursion. Mismatched or spaced parentheses
// ("LA ( LC ( LSHFT ) )") are normalized before parsing. An unparseable
// string falls back to Binding{Value: raw} with a TemplateWarning-class
// diagnostic, never a panic crossing the component boundary.
func ParseBindingString(sink diag.Sink, pos diag.Pos, raw string) Binding {
	if sink == nil {
		sink = diag.NopSink{}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Binding{Value: raw}
	}
	normalized := normalizeParens(trimmed)
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return Binding{Value: raw}
	}

	head, ok := parseBindingHead(fields[0])
	if !ok {
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevWarning,
			Kind:     diag.KindTemplate,
			Message:  "unparseable binding string " + strconv.Quote(raw) + "; using raw fallback",
			Pos:      pos,
		})
		return Binding{Value: raw}
	}

	params := make([]LayoutParam, 0, len(fields)-1)
	for _, f := range fields[1:] {
		params = append(params, parseParamToken(f))
	}
	return Binding{Value: head, Params: params}
}

func parseBindingHead(tok string) (string, bool) {
	if strings.ContainsAny(tok, "()") {
		return tok, false
	}
	return tok, true
}

// parseParamToken parses one top-level token from a normalized binding
// string into a LayoutParam, recursing into a single nested call argument
// when the token carries "name(arg)" syntax.
func parseParamToken(tok string) LayoutParam {
	open := strings.IndexByte(tok, '(')
	if open < 0 {
		return LayoutParam{Value: coerceScalar(tok)}
	}
	if !strings.HasSuffix(tok, ")") {
		return LayoutParam{Value: tok}
	}
	name := tok[:open]
	inner := tok[open+1 : len(tok)-1]
	return LayoutParam{Value: name, Params: []LayoutParam{parseParamToken(inner)}}
}

func coerceScalar(tok string) any {
	if n, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return n
	}
	return tok
}

// normalizeParens removes whitespace adjacent to '(' or ')' so that
// "LA ( LC ( LSHFT ) )" becomes "LA(LC(LSHFT))" before tokenizing on
// remaining whitespace.
func normalizeParens(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == ' ' || c == '\t' {
			last := lastNonSpaceRune(b.String())
			prevIsParen := last == '(' || last == ')'
			j := i
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
				j++
			}
			nextIsParen := j < len(runes) && (runes[j] == '(' || runes[j] == ')')
			if prevIsParen || nextIsParen {
				continue
			}
		}
		b.WriteRune(c)
	}
	return b.String()
}

func lastNonSpaceRune(s string) rune {
	if s == "" {
		return 0
	}
	r := []rune(s)
	return r[len(r)-1]
}
