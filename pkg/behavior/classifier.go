// Package behavior implements the Behavior-Extractor and Behavior-Converter
// (spec.md §4.5/§4.6, C5/C6): classifying AST subtrees into ZMK behavior
// archetypes by `compatible` substring and structural cues, then lowering
// the classified nodes into the typed records in pkg/layout.
package behavior

import (
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/dtast"
	"github.com/zmk-layout/layoutkit/pkg/walker"
)

// Archetype names one of the recognized behavior shapes.
type Archetype string

const (
	HoldTap   Archetype = "hold_taps"
	Macro     Archetype = "macros"
	TapDance  Archetype = "tap_dances"
	Combo     Archetype = "combos"
	CapsWord  Archetype = "caps_word"
	StickyKey Archetype = "sticky_keys"
	Layer     Archetype = "layers"
	Mod       Archetype = "mods"
	Other     Archetype = "other_behaviors"
)

// classifierTable maps each archetype to the compatible substrings that
// identify it (spec.md §4.5's table, checked in this order).
var classifierTable = []struct {
	archetype  Archetype
	substrings []string
}{
	{HoldTap, []string{"zmk,behavior-hold-tap", "zmk,behavior-tap-hold"}},
	{TapDance, []string{"zmk,behavior-tap-dance", "zmk,behavior-multi-tap"}},
	{Macro, []string{"zmk,behavior-macro", "zmk,behavior-sequence"}},
	{Combo, []string{"zmk,behavior-combo"}},
	{CapsWord, []string{"zmk,behavior-caps-word", "zmk,behavior-capsword"}},
	{StickyKey, []string{"zmk,behavior-sticky-key", "zmk,behavior-sk"}},
	{Layer, []string{"zmk,behavior-momentary-layer", "zmk,behavior-toggle-layer", "zmk,behavior-layer-tap"}},
	{Mod, []string{"zmk,behavior-mod-morph", "zmk,behavior-modifier"}},
}

// Classify returns the archetype a single node's `compatible` property
// (or structural shape) maps to, and false if the node matches none.
// Combo detection also accepts the structural rule (key-positions AND
// bindings present, with no compatible needed) and the "any child of a
// node literally named combos" rule — both handled by the caller
// (Extract) since they require context this function doesn't have.
func Classify(node *dtast.Node) (Archetype, bool) {
	for _, entry := range classifierTable {
		for _, substr := range entry.substrings {
			if node.HasCompatibleSubstring(substr) {
				return entry.archetype, true
			}
		}
	}
	for _, c := range node.Compatible() {
		if strings.Contains(c, "zmk,behavior") {
			return Other, true
		}
	}
	return "", false
}

// Classification buckets every behavior-shaped node found under a set of
// roots, by archetype.
type Classification struct {
	HoldTaps   []*dtast.Node
	Macros     []*dtast.Node
	TapDances  []*dtast.Node
	Combos     []*dtast.Node
	CapsWords  []*dtast.Node
	StickyKeys []*dtast.Node
	Layers     []*dtast.Node
	Mods       []*dtast.Node
	Other      []*dtast.Node
}

// Extract walks every root and buckets each node by archetype (spec.md
// §4.5). A node already bucketed by a compatible match is not
// double-counted against the structural combo rule.
func Extract(roots []*dtast.Node) Classification {
	var c Classification
	seen := make(map[*dtast.Node]bool)

	add := func(n *dtast.Node, a Archetype) {
		if seen[n] {
			return
		}
		seen[n] = true
		switch a {
		case HoldTap:
			c.HoldTaps = append(c.HoldTaps, n)
		case Macro:
			c.Macros = append(c.Macros, n)
		case TapDance:
			c.TapDances = append(c.TapDances, n)
		case Combo:
			c.Combos = append(c.Combos, n)
		case CapsWord:
			c.CapsWords = append(c.CapsWords, n)
		case StickyKey:
			c.StickyKeys = append(c.StickyKeys, n)
		case Layer:
			c.Layers = append(c.Layers, n)
		case Mod:
			c.Mods = append(c.Mods, n)
		case Other:
			c.Other = append(c.Other, n)
		}
	}

	w := walker.NewMulti(roots)
	_ = w.Walk(func(n *dtast.Node) error {
		if n.Name == "combos" {
			for _, child := range n.Children() {
				add(child, Combo)
			}
		}
		if a, ok := Classify(n); ok {
			add(n, a)
			return nil
		}
		if isStructuralCombo(n) {
			add(n, Combo)
		}
		return nil
	})

	return c
}

// isStructuralCombo implements the structural half of the combo rule: a
// node is a combo if it carries both key-positions and bindings, even
// with no compatible property at all.
func isStructuralCombo(n *dtast.Node) bool {
	return n.GetProperty("key-positions") != nil && n.GetProperty("bindings") != nil
}

// AdvancedPatterns is the bag of named node lists detect_advanced_patterns
// returns (spec.md §4.5): structural shapes that aren't `compatible`-keyed
// behaviors at all, surfaced for downstream collaborators to use as they
// see fit.
type AdvancedPatterns struct {
	InputListeners    []*dtast.Node
	SensorConfigs     []*dtast.Node
	RGBNodes          []*dtast.Node
	PointerNodes      []*dtast.Node
	ConditionalLayers []*dtast.Node
}

var nodeNameHints = []struct {
	bucket func(*AdvancedPatterns) *[]*dtast.Node
	needle []string
}{
	{func(p *AdvancedPatterns) *[]*dtast.Node { return &p.InputListeners }, []string{"input_listener", "input-listener"}},
	{func(p *AdvancedPatterns) *[]*dtast.Node { return &p.SensorConfigs }, []string{"sensor"}},
	{func(p *AdvancedPatterns) *[]*dtast.Node { return &p.RGBNodes }, []string{"rgb", "underglow"}},
	{func(p *AdvancedPatterns) *[]*dtast.Node { return &p.PointerNodes }, []string{"pointer", "mouse", "trackball", "trackpad"}},
}

// DetectAdvancedPatterns locates input-listeners (by node name), sensor
// configs, RGB/underglow nodes, pointer/mouse nodes, and nodes carrying a
// conditional-layers property, across every root.
func DetectAdvancedPatterns(roots []*dtast.Node) AdvancedPatterns {
	var patterns AdvancedPatterns
	w := walker.NewMulti(roots)
	_ = w.Walk(func(n *dtast.Node) error {
		lower := strings.ToLower(n.Name)
		for _, hint := range nodeNameHints {
			for _, needle := range hint.needle {
				if strings.Contains(lower, needle) {
					slot := hint.bucket(&patterns)
					*slot = append(*slot, n)
					break
				}
			}
		}
		if n.GetProperty("conditional-layers") != nil || n.Name == "conditional_layers" {
			patterns.ConditionalLayers = append(patterns.ConditionalLayers, n)
		}
		return nil
	})
	return patterns
}
