// Package layerdecode implements the Layer-Decoder (spec.md §4.9, C9):
// turning a keymap node's layer_* children into ordered layers of typed
// bindings.
package layerdecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/internal/dtparse"
	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
	"github.com/zmk-layout/layoutkit/pkg/layout"
	"github.com/zmk-layout/layoutkit/pkg/walker"
)

// FindKeymapNode locates the keymap node among roots: any node literally
// named "keymap", wherever it sits in the tree.
func FindKeymapNode(roots []*dtast.Node) *dtast.Node {
	matches := walker.NewMulti(roots).FindNodesByName("keymap")
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// LayerChildren returns node's children whose name begins with "layer_",
// in AST insertion order.
func LayerChildren(node *dtast.Node) []*dtast.Node {
	var out []*dtast.Node
	for _, c := range node.Children() {
		if strings.HasPrefix(c.Name, "layer_") {
			out = append(out, c)
		}
	}
	return out
}

// DecodeLayer reads a single layer node's bindings property and
// reconstructs it into logical bindings via §4.2's grouping rule. A
// layer with no bindings property decodes to an empty (but non-nil) row.
func DecodeLayer(sink diag.Sink, node *dtast.Node) []layout.Binding {
	if sink == nil {
		sink = diag.NopSink{}
	}
	p := node.GetProperty("bindings")
	if p == nil || p.Value == nil {
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevWarning,
			Kind:     diag.KindConversion,
			Message:  "layer " + node.Name + " has no bindings property",
			Pos:      node.Pos,
		})
		return []layout.Binding{}
	}
	groups := dtparse.GroupBindingValues(dtparse.Flatten(*p.Value))
	row := make([]layout.Binding, 0, len(groups))
	for _, g := range groups {
		row = append(row, layout.BindingFromGroup(g))
	}
	return row
}

// Decode finds the keymap node among roots and decodes every layer_*
// child into parallel layer-name and layer-binding-row lists, in AST
// insertion order. A missing keymap node yields two empty, non-nil
// slices rather than an error — the caller decides whether that's
// fatal.
func Decode(sink diag.Sink, roots []*dtast.Node) (layerNames []string, layers [][]layout.Binding) {
	keymap := FindKeymapNode(roots)
	if keymap == nil {
		return []string{}, [][]layout.Binding{}
	}
	children := LayerChildren(keymap)
	layerNames = make([]string, 0, len(children))
	layers = make([][]layout.Binding, 0, len(children))
	for _, c := range children {
		layerNames = append(layerNames, strings.TrimPrefix(c.Name, "layer_"))
		layers = append(layers, DecodeLayer(sink, c))
	}
	return layerNames, layers
}

// layerRefBehaviors names the bindings whose first parameter is a
// layer index (spec.md I4, P10).
var layerRefBehaviors = map[string]bool{"&mo": true, "&lt": true, "&to": true, "&tog": true}

// ValidateLayerReferences flags every &mo/&lt/&to/&tog binding whose
// layer-index parameter falls outside 0..len(layerNames) (spec.md I4:
// "the core reports but does not auto-correct violations"; P10:
// "validate_layer_references flags every out-of-range index and no
// others"). Bindings whose first parameter isn't a recognizable
// integer are left alone — that's a conversion-time concern, not this
// one's.
func ValidateLayerReferences(sink diag.Sink, layerNames []string, layers [][]layout.Binding) {
	for rowIdx, row := range layers {
		for _, b := range row {
			if !layerRefBehaviors[b.Value] || len(b.Params) == 0 {
				continue
			}
			idx, ok := layerIndexParam(b.Params[0].Value)
			if !ok {
				continue
			}
			if idx >= 0 && idx < int64(len(layerNames)) {
				continue
			}
			layerName := ""
			if rowIdx < len(layerNames) {
				layerName = layerNames[rowIdx]
			}
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindReference,
				Message: fmt.Sprintf("%s references layer index %d, out of range 0..%d (in layer %q)",
					b.Value, idx, len(layerNames), layerName),
			})
		}
	}
}

func layerIndexParam(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
