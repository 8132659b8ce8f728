package dtast

import (
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/diag"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInteger
	KindBoolean
	KindReference
	KindArray
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a tagged variant over the Devicetree property value shapes
// (spec.md §3.1). Every Value retains its Raw textual form so it can be
// re-tokenized losslessly for diagnostics or re-emission, and so that
// conversion helpers can fall back to text parsing when the structured
// form doesn't carry enough information (e.g. an ARRAY element that is
// itself a bare identifier rather than a fully-typed Value).
type Value struct {
	Kind     ValueKind
	Raw      string  // original textual form
	Str      string  // KindString: unescaped text; KindReference: name after '&'
	Int      int64   // KindInteger
	Bool     bool    // KindBoolean
	Elements []Value // KindArray
}

func StringValue(s, raw string) Value {
	return Value{Kind: KindString, Str: s, Raw: raw}
}

func IntValue(n int64, raw string) Value {
	return Value{Kind: KindInteger, Int: n, Raw: raw}
}

func BoolValue(b bool, raw string) Value {
	return Value{Kind: KindBoolean, Bool: b, Raw: raw}
}

func ReferenceValue(name, raw string) Value {
	return Value{Kind: KindReference, Str: name, Raw: raw}
}

func ArrayValue(elements []Value, raw string) Value {
	return Value{Kind: KindArray, Elements: elements, Raw: raw}
}

// AsInt converts the value to an integer, per spec.md §4.3: supports hex
// (0x-prefixed), decimal, one-element arrays that stringify to decimals,
// and angle-bracket-stripped raw text as a last resort.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInteger:
		return v.Int, true
	case KindArray:
		if len(v.Elements) == 1 {
			return v.Elements[0].AsInt()
		}
		return 0, false
	case KindString, KindReference:
		return parseIntText(v.Str)
	default:
		return parseIntText(strings.Trim(v.Raw, "<> \t"))
	}
}

func parseIntText(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return n, true
	}
	return 0, false
}

// AsBool converts the value to a boolean. Presence alone (a property with
// no value) means true; textual true/1/yes/on map to true; anything else
// is false.
func (v Value) AsBool() bool {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindInteger:
		return v.Int != 0
	case KindString, KindReference:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "1", "yes", "on":
			return true
		default:
			return false
		}
	default:
		return true
	}
}

// AsIntSlice coerces an ARRAY value to []int64, skipping unconvertible
// elements and emitting a warning diagnostic for each one skipped.
func (v Value) AsIntSlice(sink diag.Sink, pos diag.Pos) []int64 {
	if sink == nil {
		sink = diag.NopSink{}
	}
	if v.Kind != KindArray {
		if n, ok := v.AsInt(); ok {
			return []int64{n}
		}
		return nil
	}
	out := make([]int64, 0, len(v.Elements))
	for _, el := range v.Elements {
		n, ok := el.AsInt()
		if !ok {
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindConversion,
				Message:  "cannot convert array element " + el.Raw + " to integer; skipping",
				Pos:      pos,
			})
			continue
		}
		out = append(out, n)
	}
	return out
}

// AsStringSlice returns the textual form of each array element (or a
// single-element slice if v is not an array), preserving identifiers
// exactly as tokenized.
func (v Value) AsStringSlice() []string {
	if v.Kind != KindArray {
		return []string{v.textForm()}
	}
	out := make([]string, 0, len(v.Elements))
	for _, el := range v.Elements {
		out = append(out, el.textForm())
	}
	return out
}

func (v Value) textForm() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindReference:
		return "&" + v.Str
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return v.Raw
	}
}
