// Package importer implements the Import Orchestrator (spec.md §4.10,
// C10): the two entry points ("full" and "template-aware" mode) that
// assemble every upstream component — the parser, the behavior
// extractor/converter, the layer decoder, the metadata extractor, and
// (template mode only) the section extractor — into one Layout.
package importer

import (
	"github.com/zmk-layout/layoutkit/internal/dtlex"
	"github.com/zmk-layout/layoutkit/internal/dtparse"
	"github.com/zmk-layout/layoutkit/pkg/behavior"
	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
	"github.com/zmk-layout/layoutkit/pkg/dtprint"
	"github.com/zmk-layout/layoutkit/pkg/layerdecode"
	"github.com/zmk-layout/layoutkit/pkg/layout"
	"github.com/zmk-layout/layoutkit/pkg/metadata"
	"github.com/zmk-layout/layoutkit/pkg/profile"
	"github.com/zmk-layout/layoutkit/pkg/section"
)

// ParsingMode names how a Result's Layout was assembled (spec.md §4.10).
type ParsingMode string

const (
	ModeFull     ParsingMode = "full"
	ModeTemplate ParsingMode = "template"
)

// Result is the orchestrator's output (spec.md §4.10): success requires
// no fatal errors at the orchestrator level — individual component
// warnings never flip it, only a parse failure severe enough that no
// usable AST came back does.
type Result struct {
	Success           bool
	Layout            *layout.Layout
	Errors            []diag.Diagnostic
	Warnings          []diag.Diagnostic
	ParsingMode       ParsingMode
	ExtractedSections []section.Section
}

// knownContainers names the top-level node names every full import
// already dispatches to a dedicated component; anything else surviving
// at the root is non-standard and preserved verbatim rather than
// silently dropped (P3).
var knownContainers = map[string]bool{"behaviors": true, "macros": true, "combos": true, "keymap": true}

// Full runs the full-document import mode (spec.md §4.10): parse
// everything, run the metadata extractor over every root, the layer
// decoder for the keymap, the behavior extractor/converter for
// behaviors/macros/combos, and fold any remaining top-level content
// into CustomDevicetree/CustomDefinedBehaviors verbatim.
func Full(keyboard, title, sourceFile string, source []byte) *Result {
	collector := diag.NewCollector()
	toks, lexErr := dtlex.Tokenize(source, dtlex.Options{})
	if lexErr != nil {
		collector.Emit(diag.Diagnostic{Severity: diag.SevError, Kind: diag.KindLexical, Message: lexErr.Error()})
		return finish(collector, nil, ModeFull, nil)
	}

	tree, parseErrs := dtparse.Parse(toks)
	for _, e := range parseErrs {
		collector.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: e.Kind, Message: e.Error(), Pos: e.Pos})
	}
	if tree == nil {
		collector.Emit(diag.Diagnostic{Severity: diag.SevError, Kind: diag.KindParse, Message: "no usable AST produced"})
		return finish(collector, nil, ModeFull, nil)
	}

	l := layout.New(keyboard, title)
	roots := tree.Roots

	layerNames, layers := layerdecode.Decode(collector, roots)
	l.LayerNames = layerNames
	l.Layers = layers
	layerdecode.ValidateLayerReferences(collector, l.LayerNames, l.Layers)

	classified := behavior.Extract(roots)
	for _, n := range classified.HoldTaps {
		if ht, err := behavior.ConvertHoldTap(collector, n); err == nil {
			l.HoldTaps = append(l.HoldTaps, *ht)
		}
	}
	for _, n := range classified.Macros {
		l.Macros = append(l.Macros, *behavior.ConvertMacro(collector, n))
	}
	for _, n := range classified.Combos {
		if c, err := behavior.ConvertCombo(collector, n); err == nil {
			l.Combos = append(l.Combos, *c)
		}
	}
	advanced := behavior.DetectAdvancedPatterns(roots)
	for _, n := range advanced.InputListeners {
		l.InputListeners = append(l.InputListeners, *behavior.ConvertInputListener(n))
	}

	md := metadata.Extract(source, roots)
	md.Provenance = layout.Provenance{ParsingMethod: "devicetree", ParsingMode: string(ModeFull), SourceFile: sourceFile}
	l.KeymapMetadata = md

	dtsi, customBehaviors := collectNonStandard(roots, classified, advanced)
	l.CustomDevicetree = dtsi
	l.CustomDefinedBehaviors = customBehaviors

	return finish(collector, l, ModeFull, nil)
}

// collectNonStandard renders everything not already dispatched to a
// typed component: top-level siblings of the root's known containers go
// to custom_devicetree, while tap-dance/sticky-key/caps-word/layer/mod
// behaviors (classified but with no dedicated typed converter) go to
// custom_defined_behaviors.
func collectNonStandard(roots []*dtast.Node, c behavior.Classification, a behavior.AdvancedPatterns) (dtsi, behaviors string) {
	handled := make(map[*dtast.Node]bool)
	mark := func(nodes []*dtast.Node) {
		for _, n := range nodes {
			handled[n] = true
		}
	}
	mark(c.HoldTaps)
	mark(c.Macros)
	mark(c.Combos)
	mark(a.InputListeners)

	var looseBehaviors []*dtast.Node
	mark2 := func(nodes []*dtast.Node) {
		looseBehaviors = append(looseBehaviors, nodes...)
		mark(nodes)
	}
	mark2(c.TapDances)
	mark2(c.CapsWords)
	mark2(c.StickyKeys)
	mark2(c.Layers)
	mark2(c.Mods)
	mark2(c.Other)

	var looseTop []*dtast.Node
	for _, root := range roots {
		for _, child := range root.Children() {
			if knownContainers[child.Name] || handled[child] {
				continue
			}
			looseTop = append(looseTop, child)
		}
	}

	return dtprint.Nodes(looseTop), dtprint.Nodes(looseBehaviors)
}

// TemplateAware runs the profile-driven extraction mode (spec.md
// §4.10): it asks the profile for its extraction configuration (falling
// back to profile.Default{} if prof is nil), runs the section extractor,
// assembles the layout from the resulting sections, and stashes every
// section's raw content into Variables under its template-variable name
// so export templates can re-emit it.
func TemplateAware(keyboard, title, sourceFile string, source []byte, prof profile.Provider) *Result {
	if prof == nil {
		prof = profile.Default{}
	}
	collector := diag.NewCollector()
	configs := prof.ExtractionConfig()

	l := layout.New(keyboard, title)
	sections := section.ExtractSections(collector, source, configs)

	for _, sec := range sections {
		if sec.Config.TplCtxName != "" {
			l.Variables[sec.Config.TplCtxName] = sec.Raw
		}
		switch sec.Config.Type {
		case section.TypeBehavior:
			l.HoldTaps = append(l.HoldTaps, sec.HoldTaps...)
		case section.TypeMacro:
			l.Macros = append(l.Macros, sec.Macros...)
		case section.TypeCombo:
			l.Combos = append(l.Combos, sec.Combos...)
		case section.TypeKeymap:
			l.LayerNames = append(l.LayerNames, sec.LayerNames...)
			l.Layers = append(l.Layers, sec.Layers...)
		}
	}

	l.KeymapMetadata = &layout.KeymapMetadata{
		Provenance: layout.Provenance{ParsingMethod: "template", ParsingMode: string(ModeTemplate), SourceFile: sourceFile},
	}

	layerdecode.ValidateLayerReferences(collector, l.LayerNames, l.Layers)

	return finish(collector, l, ModeTemplate, sections)
}

func finish(collector *diag.Collector, l *layout.Layout, mode ParsingMode, sections []section.Section) *Result {
	bySev := collector.BySeverity()
	r := &Result{
		Layout:            l,
		Errors:            bySev[diag.SevError],
		Warnings:          append(bySev[diag.SevWarning], bySev[diag.SevInfo]...),
		ParsingMode:       mode,
		ExtractedSections: sections,
		Success:           l != nil,
	}
	return r
}
