package behavior

import (
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/internal/dtparse"
	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
	"github.com/zmk-layout/layoutkit/pkg/layout"
)

// ErrConversion mirrors spec.md §7's ConversionError class: an
// archetype-specific constraint violated (a hold-tap without exactly two
// bindings, a combo with no key-positions, ...). The caller drops the
// offending behavior and continues; this is never returned across a
// pipeline boundary as a fatal error.
var ErrConversion = diag.NewError(diag.KindConversion, "behavior conversion constraint violated")

// identityName returns the Common-rule name (spec.md §4.6): label if
// present else name, prefixed with '&' except for combos, which use the
// bare name with a leading "combo_" stripped.
func identityName(n *dtast.Node, a Archetype) string {
	name := n.IdentityName()
	if a == Combo {
		return strings.TrimPrefix(name, "combo_")
	}
	return "&" + name
}

// extractDescription implements the §4.6 priority order: leading
// comments on the node; failing that, leading comments on the parent;
// failing that, the `description` property; failing that, `label`. The
// parser attaches leading trivia to the enclosing node rather than the
// child it precedes, so a node's own Comments hold the comments inside
// its own body; the parent fallback covers comments written just above
// a child behavior.
func extractDescription(n *dtast.Node) string {
	if desc := describeFromComments(n.Comments); desc != "" {
		return desc
	}
	if n.Parent != nil {
		if desc := describeFromComments(n.Parent.Comments); desc != "" {
			return desc
		}
	}
	if p := n.GetProperty("description"); p != nil && p.Value != nil {
		return p.Value.AsStringSlice()[0]
	}
	if p := n.GetProperty("label"); p != nil && p.Value != nil {
		return p.Value.AsStringSlice()[0]
	}
	return ""
}

// describeFromComments concatenates comment text, stripping delimiters,
// skipping property-like ("#...") comments, and collapsing more than one
// consecutive blank line.
func describeFromComments(comments []dtast.Comment) string {
	var lines []string
	for _, c := range comments {
		text := cleanCommentText(c)
		if strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, text)
	}
	if len(lines) == 0 {
		return ""
	}
	return collapseBlankRuns(strings.Join(lines, "\n"))
}

func cleanCommentText(c dtast.Comment) string {
	text := c.Text
	if c.IsBlock {
		text = strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.TrimPrefix(text, "//"))
}

func collapseBlankRuns(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// bindingsFromProperty reconstructs the ordered Binding list of a
// `bindings` property, applying the §4.2 array-grouping rule so that
// `<&kp Q &hm LCTRL A>` becomes two Bindings rather than one flat list.
func bindingsFromProperty(p *dtast.Property) []layout.Binding {
	if p == nil || p.Value == nil {
		return nil
	}
	groups := dtparse.GroupBindingValues(dtparse.Flatten(*p.Value))
	out := make([]layout.Binding, 0, len(groups))
	for _, g := range groups {
		out = append(out, layout.BindingFromGroup(g))
	}
	return out
}

// bindingHeads extracts the bare "&name" reference of each comma-joined
// binding entry of a hold-tap's `bindings` property. A hold-tap's
// bindings name the two behaviors to invoke on tap/hold, not a full
// parameterized invocation, so only the leading reference matters.
func bindingHeads(v dtast.Value) []string {
	var out []string
	for _, el := range dtparse.Flatten(v) {
		out = append(out, bindingHead(el))
	}
	return out
}

func bindingHead(v dtast.Value) string {
	if v.Kind == dtast.KindArray && v.Str == "" && len(v.Elements) > 0 {
		return bindingHead(v.Elements[0])
	}
	if v.Kind == dtast.KindReference {
		return "&" + v.Str
	}
	return v.Raw
}

// ConvertHoldTap lowers a hold-tap node into a layout.HoldTap (spec.md
// §4.6). A hold-tap must yield exactly two bindings; anything else is a
// ConversionError and nil is returned.
func ConvertHoldTap(sink diag.Sink, n *dtast.Node) (*layout.HoldTap, error) {
	if sink == nil {
		sink = diag.NopSink{}
	}
	ht := &layout.HoldTap{Name: identityName(n, HoldTap), Description: extractDescription(n)}

	if p := n.GetProperty("tapping-term-ms"); p != nil {
		if v, ok := p.Value.AsInt(); ok {
			ht.TappingTermMs = &v
		}
	}
	if p := n.GetProperty("quick-tap-ms"); p != nil {
		if v, ok := p.Value.AsInt(); ok {
			ht.QuickTapMs = &v
		}
	}
	if p := n.GetProperty("require-prior-idle-ms"); p != nil {
		if v, ok := p.Value.AsInt(); ok {
			ht.RequirePriorIdleMs = &v
		}
	}
	if p := n.GetProperty("flavor"); p != nil && p.Value != nil {
		flavor := p.Value.AsStringSlice()[0]
		ht.Flavor = flavor
		if !layout.AllowedHoldTapFlavors[flavor] {
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindConversion,
				Message:  "hold-tap " + ht.Name + " has unrecognized flavor " + flavor,
				Pos:      n.Pos,
			})
		}
	}
	if p := n.GetProperty("hold-trigger-key-positions"); p != nil && p.Value != nil {
		ht.HoldTriggerKeyPositions = p.Value.AsIntSlice(sink, n.Pos)
	}
	if n.GetProperty("hold-trigger-on-release") != nil {
		ht.HoldTriggerOnRelease = true
	}
	if n.GetProperty("retro-tap") != nil {
		ht.RetroTap = true
	}

	if bp := n.GetProperty("bindings"); bp != nil && bp.Value != nil {
		ht.Bindings = bindingHeads(*bp.Value)
	}
	if len(ht.Bindings) != 2 {
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevError,
			Kind:     diag.KindConversion,
			Message:  "hold-tap " + ht.Name + " must have exactly two bindings, found " + strconv.Itoa(len(ht.Bindings)),
			Pos:      n.Pos,
		})
		return nil, ErrConversion.At(n.Pos)
	}
	return ht, nil
}

// ConvertMacro lowers a macro node into a layout.Macro, resolving the
// parameter count via #binding-cells first, the compatible-string
// fallback second, and an empty-with-warning default last (spec.md §4.6).
func ConvertMacro(sink diag.Sink, n *dtast.Node) *layout.Macro {
	if sink == nil {
		sink = diag.NopSink{}
	}
	m := &layout.Macro{Name: identityName(n, Macro), Description: extractDescription(n)}

	if p := n.GetProperty("wait-ms"); p != nil {
		if v, ok := p.Value.AsInt(); ok {
			m.WaitMs = &v
		}
	}
	if p := n.GetProperty("tap-ms"); p != nil {
		if v, ok := p.Value.AsInt(); ok {
			m.TapMs = &v
		}
	}
	m.Bindings = bindingsFromProperty(n.GetProperty("bindings"))
	m.Params = resolveMacroParams(sink, n)
	return m
}

func resolveMacroParams(sink diag.Sink, n *dtast.Node) []string {
	cellsProp := n.GetProperty("#binding-cells")
	if cellsProp == nil {
		cellsProp = n.GetProperty("binding-cells")
	}
	if cellsProp == nil {
		cellsProp = n.GetProperty("binding_cells")
	}
	name := n.IdentityName()

	if cellsProp != nil && cellsProp.Value != nil {
		if cells, ok := cellsProp.Value.AsInt(); ok {
			switch cells {
			case 0:
				return []string{}
			case 1:
				return []string{"code"}
			case 2:
				return []string{"param1", "param2"}
			}
		}
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevWarning,
			Kind:     diag.KindConversion,
			Message:  "macro " + name + " has unsupported #binding-cells value",
			Pos:      n.Pos,
		})
		return nil
	}

	if cp := n.GetProperty("compatible"); cp != nil && cp.Value != nil {
		switch cp.Value.AsStringSlice()[0] {
		case "zmk,behavior-macro-one-param":
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindConversion,
				Message:  "macro " + name + " missing #binding-cells; inferred 1 param from compatible",
				Pos:      n.Pos,
			})
			return []string{"code"}
		case "zmk,behavior-macro-two-param":
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindConversion,
				Message:  "macro " + name + " missing #binding-cells; inferred 2 params from compatible",
				Pos:      n.Pos,
			})
			return []string{"param1", "param2"}
		case "zmk,behavior-macro":
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindConversion,
				Message:  "macro " + name + " missing #binding-cells; inferred 0 params from compatible",
				Pos:      n.Pos,
			})
			return []string{}
		}
	}

	sink.Emit(diag.Diagnostic{
		Severity: diag.SevWarning,
		Kind:     diag.KindConversion,
		Message:  "macro " + name + " has no #binding-cells and unrecognized compatible; defaulting to no params",
		Pos:      n.Pos,
	})
	return []string{}
}

// ConvertCombo lowers a combo node into a layout.Combo. key-positions and
// exactly one logical binding are required; timeout-ms and layers are
// optional, with layers defaulting to the [-1] placeholder when absent.
func ConvertCombo(sink diag.Sink, n *dtast.Node) (*layout.Combo, error) {
	if sink == nil {
		sink = diag.NopSink{}
	}
	name := identityName(n, Combo)

	kp := n.GetProperty("key-positions")
	if kp == nil || kp.Value == nil {
		sink.Emit(diag.Diagnostic{Severity: diag.SevError, Kind: diag.KindConversion, Message: "combo " + name + " missing key-positions", Pos: n.Pos})
		return nil, ErrConversion.At(n.Pos)
	}
	positions := kp.Value.AsIntSlice(sink, n.Pos)
	if len(positions) == 0 {
		sink.Emit(diag.Diagnostic{Severity: diag.SevError, Kind: diag.KindConversion, Message: "combo " + name + " has empty key-positions", Pos: n.Pos})
		return nil, ErrConversion.At(n.Pos)
	}

	bp := n.GetProperty("bindings")
	if bp == nil || bp.Value == nil {
		sink.Emit(diag.Diagnostic{Severity: diag.SevError, Kind: diag.KindConversion, Message: "combo " + name + " missing bindings", Pos: n.Pos})
		return nil, ErrConversion.At(n.Pos)
	}
	groups := dtparse.GroupBindingValues(dtparse.Flatten(*bp.Value))
	if len(groups) != 1 {
		sink.Emit(diag.Diagnostic{Severity: diag.SevError, Kind: diag.KindConversion, Message: "combo " + name + " must have exactly one binding", Pos: n.Pos})
		return nil, ErrConversion.At(n.Pos)
	}

	combo := &layout.Combo{
		Name:         name,
		Description:  extractDescription(n),
		KeyPositions: positions,
		Binding:      layout.BindingFromGroup(groups[0]),
	}
	if p := n.GetProperty("timeout-ms"); p != nil {
		if v, ok := p.Value.AsInt(); ok {
			combo.TimeoutMs = &v
		}
	}
	if p := n.GetProperty("layers"); p != nil && p.Value != nil {
		combo.Layers = p.Value.AsIntSlice(sink, n.Pos)
	} else {
		combo.Layers = []int64{-1}
		sink.Emit(diag.Diagnostic{Severity: diag.SevInfo, Kind: diag.KindConversion, Message: "combo " + name + " missing layers; using placeholder [-1]", Pos: n.Pos})
	}
	return combo, nil
}

// ConvertInputListener lowers an input-listener node (detected via
// DetectAdvancedPatterns, not the compatible-string classifier table —
// ZMK input listeners key off node name, not a "zmk,behavior-*"
// compatible) into a layout.InputListener. Its internal shape is left
// open by spec.md §3.3, so every property of each child node is carried
// into that child's Properties map. Of the listener node's own
// properties only input-processors is kept; the others are not recorded.
func ConvertInputListener(n *dtast.Node) *layout.InputListener {
	il := &layout.InputListener{Code: n.IdentityName()}
	if p := n.GetProperty("input-processors"); p != nil && p.Value != nil {
		il.InputProcessors = p.Value.AsStringSlice()
	}
	for _, child := range n.Children() {
		node := layout.InputListenerNode{Name: child.IdentityName(), Properties: make(map[string]any)}
		for _, p := range child.Properties() {
			if p.Value == nil {
				node.Properties[p.Name] = true
				continue
			}
			node.Properties[p.Name] = scalarFromValue(*p.Value)
		}
		il.Nodes = append(il.Nodes, node)
	}
	return il
}

func scalarFromValue(v dtast.Value) any {
	switch v.Kind {
	case dtast.KindInteger:
		return v.Int
	case dtast.KindBoolean:
		return v.Bool
	case dtast.KindArray:
		out := make([]any, 0, len(v.Elements))
		for _, e := range v.Elements {
			out = append(out, scalarFromValue(e))
		}
		return out
	default:
		return v.Str
	}
}
