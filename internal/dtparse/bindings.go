package dtparse

import "github.com/zmk-layout/layoutkit/pkg/dtast"

// GroupBindingValues implements the binding-grouping rule of spec.md §4.2:
// inside an ARRAY, a reference followed by non-reference elements groups
// those elements as parameters of that reference, up to the next
// reference. "<&kp Q &hm LCTRL A>" yields two groups: [&kp, Q] and
// [&hm, LCTRL, A].
//
// This is deliberately kept separate from parseAngleArray: the parser
// only needs to assemble the flat, call-grouped element sequence; the
// behavior converter (C6) and layer decoder (C9) are the ones that need
// the reference/param grouping, and each applies it to arrays gathered
// from different places (a single property vs. a whole node's bindings
// list), so it's exposed here as a plain function over []dtast.Value
// rather than baked into the AST's Value shape.
func GroupBindingValues(elements []dtast.Value) [][]dtast.Value {
	var groups [][]dtast.Value
	for _, el := range elements {
		if el.Kind == dtast.KindReference {
			groups = append(groups, []dtast.Value{el})
			continue
		}
		if len(groups) == 0 {
			// Leading non-reference elements with no reference yet to
			// attach to: start an anonymous group so no input is dropped
			// (P3 — never silently discard data).
			groups = append(groups, []dtast.Value{})
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], el)
	}
	return groups
}

// Flatten unwraps a top-level ARRAY Value into its element slice, or
// returns a single-element slice for a scalar Value — the common
// pre-step before GroupBindingValues, since a "bindings" property might
// itself be a bare single binding (e.g. a combo's one-element bindings
// list: spec.md §4.6) rather than an ARRAY of several.
func Flatten(v dtast.Value) []dtast.Value {
	if v.Kind == dtast.KindArray && v.Str == "" {
		return v.Elements
	}
	return []dtast.Value{v}
}
