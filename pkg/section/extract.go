// Package section implements the Section-Extractor (spec.md §4.8, C8):
// template-aware delimiter-based slicing used by the import
// orchestrator's template-aware mode, dispatching each recognized
// section to the behavior/macro/combo converter (§4.6) or the layer
// decoder (§4.9).
package section

import (
	"regexp"
	"strings"

	"github.com/zmk-layout/layoutkit/internal/dtlex"
	"github.com/zmk-layout/layoutkit/internal/dtparse"
	"github.com/zmk-layout/layoutkit/pkg/behavior"
	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
	"github.com/zmk-layout/layoutkit/pkg/layerdecode"
	"github.com/zmk-layout/layoutkit/pkg/layout"
)

// Type is one of the section kinds a template extraction config can name.
type Type string

const (
	TypeDtsi          Type = "dtsi"
	TypeBehavior      Type = "behavior"
	TypeMacro         Type = "macro"
	TypeCombo         Type = "combo"
	TypeKeymap        Type = "keymap"
	TypeInputListener Type = "input_listener"
)

// Delimiter names the start pattern (required) and end pattern
// (optional — absent means "until the next section's start, or EOF").
type Delimiter struct {
	Start string
	End   string
}

// ExtractionConfig is one entry of a keyboard profile's extraction
// configuration.
type ExtractionConfig struct {
	TplCtxName    string
	LayerDataName string
	Type          Type
	Delimiter     Delimiter
}

// Section is one extracted, cleaned, and dispatched region of source.
type Section struct {
	Config ExtractionConfig
	Raw    string

	HoldTaps []layout.HoldTap
	Macros   []layout.Macro
	Combos   []layout.Combo

	LayerNames []string
	Layers     [][]layout.Binding
}

type startMatch struct {
	cfg   ExtractionConfig
	start int // index of the first byte of the matched start pattern
	end   int // index just past the matched start pattern
}

// ExtractSections scans source for each config's start pattern and
// slices out the region up to the next section's start (or its own end
// pattern, or end-of-input), per spec.md §4.8. Configs whose start
// pattern never matches are silently skipped (not every profile section
// appears in every keymap file). Regex compilation errors and
// unparseable behavior/macro/combo/keymap sections are reported to sink
// but never abort the remaining sections.
func ExtractSections(sink diag.Sink, source []byte, configs []ExtractionConfig) []Section {
	if sink == nil {
		sink = diag.NopSink{}
	}
	src := string(source)

	var matches []startMatch
	for _, cfg := range configs {
		re, err := regexp.Compile(cfg.Delimiter.Start)
		if err != nil {
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindTemplate,
				Message:  "invalid start pattern for " + cfg.TplCtxName + ": " + err.Error(),
			})
			continue
		}
		loc := re.FindStringIndex(src)
		if loc == nil {
			continue
		}
		matches = append(matches, startMatch{cfg: cfg, start: loc[0], end: loc[1]})
	}

	// Order by position so "next section's start" is well-defined
	// regardless of the order callers listed configs in.
	for i := 1; i < len(matches); i++ {
		j := i
		for j > 0 && matches[j-1].start > matches[j].start {
			matches[j-1], matches[j] = matches[j], matches[j-1]
			j--
		}
	}

	out := make([]Section, 0, len(matches))
	for i, m := range matches {
		regionEnd := len(src)
		if i+1 < len(matches) {
			regionEnd = matches[i+1].start
		}
		if m.cfg.Delimiter.End != "" {
			if re, err := regexp.Compile(m.cfg.Delimiter.End); err == nil {
				if loc := re.FindStringIndex(src[m.end:regionEnd]); loc != nil {
					regionEnd = m.end + loc[0]
				}
			}
		}
		raw := clean(src[m.end:regionEnd])
		out = append(out, dispatch(sink, m.cfg, raw))
	}
	return out
}

var blankOrCommentLine = regexp.MustCompile(`^\s*(//.*|/\*.*\*/|\{#.*#\})?\s*$`)

// clean drops empty lines and lines that are solely a line comment, a
// single-line block comment, or a template comment ("{# ... #}").
func clean(region string) string {
	lines := strings.Split(region, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if blankOrCommentLine.MatchString(l) {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func dispatch(sink diag.Sink, cfg ExtractionConfig, raw string) Section {
	sec := Section{Config: cfg, Raw: raw}
	switch cfg.Type {
	case TypeDtsi, TypeInputListener:
		// stored verbatim
	case TypeBehavior, TypeMacro, TypeCombo:
		roots := parseFragment(sink, cfg, raw)
		classified := behavior.Extract(roots)
		for _, n := range classified.HoldTaps {
			if ht, err := behavior.ConvertHoldTap(sink, n); err == nil {
				sec.HoldTaps = append(sec.HoldTaps, *ht)
			}
		}
		for _, n := range classified.Macros {
			sec.Macros = append(sec.Macros, *behavior.ConvertMacro(sink, n))
		}
		for _, n := range classified.Combos {
			if c, err := behavior.ConvertCombo(sink, n); err == nil {
				sec.Combos = append(sec.Combos, *c)
			}
		}
	case TypeKeymap:
		roots := parseFragment(sink, cfg, raw)
		sec.LayerNames, sec.Layers = layerdecode.Decode(sink, roots)
	default:
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevWarning,
			Kind:     diag.KindTemplate,
			Message:  "unrecognized section type " + string(cfg.Type) + " for " + cfg.TplCtxName,
		})
	}
	return sec
}

// parseFragment wraps a raw section body in a synthetic root so that
// bare node bodies (as extracted from a "behaviors { ... }" block, say)
// parse the same way a full Devicetree document would. A fragment that
// fails to lex or parse yields no roots plus a KindTemplate diagnostic —
// the section is dropped, not the whole extraction pass.
func parseFragment(sink diag.Sink, cfg ExtractionConfig, raw string) []*dtast.Node {
	body := raw
	if cfg.Type == TypeKeymap {
		// layerdecode looks for a node literally named "keymap"; a
		// keymap section's extracted body is just its layer_* children.
		body = "keymap {\n" + raw + "\n};"
	}
	wrapped := "/ {\n" + body + "\n};"
	toks, err := dtlex.Tokenize([]byte(wrapped), dtlex.Options{})
	if err != nil {
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevWarning,
			Kind:     diag.KindTemplate,
			Message:  "unparseable " + string(cfg.Type) + " section " + cfg.TplCtxName + ": " + err.Error(),
		})
		return nil
	}
	tree, errs := dtparse.Parse(toks)
	for _, e := range errs {
		sink.Emit(diag.Diagnostic{
			Severity: diag.SevWarning,
			Kind:     diag.KindTemplate,
			Message:  "unparseable " + string(cfg.Type) + " section " + cfg.TplCtxName + ": " + e.Error(),
		})
	}
	if tree == nil {
		return nil
	}
	return tree.Roots
}
