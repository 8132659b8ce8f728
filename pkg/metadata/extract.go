// Package metadata implements the Metadata-Extractor (spec.md §4.7, C7):
// comments, directives, includes, header/footer spans, and a dependency
// graph harvested from an AST and its raw source in parallel.
package metadata

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/dtast"
	"github.com/zmk-layout/layoutkit/pkg/layout"
	"github.com/zmk-layout/layoutkit/pkg/walker"
)

// contextNodes names the node identities that become their own comment
// category (spec.md §4.7); anything else falls back to "general".
var contextNodes = map[string]bool{"combos": true, "behaviors": true, "keymap": true}

func categoryFor(n *dtast.Node) string {
	if contextNodes[n.Name] {
		return n.Name
	}
	return "general"
}

// ExtractComments walks every root and records each node's attached
// comments with a contextual category.
func ExtractComments(roots []*dtast.Node) []layout.CommentRecord {
	var out []layout.CommentRecord
	category := ""
	_ = walker.NewMulti(roots).Walk(func(n *dtast.Node) error {
		category = categoryFor(n)
		for _, c := range n.Comments {
			out = append(out, layout.CommentRecord{
				Text:     c.Text,
				Line:     c.Pos.Line,
				Category: category,
				IsBlock:  c.IsBlock,
			})
		}
		return nil
	})
	return out
}

// ExtractDirectives walks every root and records each node's attached
// preprocessor directives.
func ExtractDirectives(roots []*dtast.Node) []layout.DirectiveRecord {
	var out []layout.DirectiveRecord
	_ = walker.NewMulti(roots).Walk(func(n *dtast.Node) error {
		for _, d := range n.Directives {
			out = append(out, layout.DirectiveRecord{
				Name:      d.Name,
				Condition: d.Condition,
				Line:      d.Pos.Line,
			})
		}
		return nil
	})
	return out
}

var includeRe = regexp.MustCompile(`^\s*#\s*include\s*([<"])([^>"]+)[>"]`)

// ExtractIncludes scans the raw source line by line for #include
// directives, noting angle-bracket vs. quote form and attempting
// best-effort resolution (spec.md §4.7).
func ExtractIncludes(source []byte) []layout.IncludeDescriptor {
	var out []layout.IncludeDescriptor
	for i, line := range splitLines(source) {
		m := includeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		angled := m[1] == "<"
		path := m[2]
		out = append(out, layout.IncludeDescriptor{
			Path:       path,
			Line:       i + 1,
			Resolution: resolveInclude(path, angled),
			Angled:     angled,
		})
	}
	return out
}

var angleSearchRoots = []string{"~/zmk/app/include", "/opt/zmk/include", "./zmk/app/include", "./include"}
var quoteSearchRoots = []string{"./", "./config/", "../"}

// resolveInclude tries each well-known search root in order, returning
// the first path that exists on disk; otherwise a tagged sentinel.
func resolveInclude(path string, angled bool) string {
	roots := quoteSearchRoots
	if angled {
		roots = angleSearchRoots
	}
	for _, root := range roots {
		base := root
		if strings.HasPrefix(base, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			base = filepath.Join(home, strings.TrimPrefix(base, "~"))
		}
		full := filepath.Join(base, path)
		if _, err := os.Stat(full); err == nil {
			return full
		}
	}
	if angled {
		return "[system] " + path
	}
	return "[local] " + path
}

var otherDirectiveRe = regexp.MustCompile(`^\s*#\s*(ifdef|ifndef|if|define|undef|else|endif)\b\s*(.*)$`)

// ExtractRawDirectives finds preprocessor lines directly from the source
// text — including ones outside any node body (e.g. in the header/footer
// span), which the AST-attached form in ExtractDirectives cannot see.
func ExtractRawDirectives(source []byte) []layout.DirectiveRecord {
	var out []layout.DirectiveRecord
	for i, line := range splitLines(source) {
		if includeRe.MatchString(line) {
			continue
		}
		m := otherDirectiveRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, layout.DirectiveRecord{Name: m[1], Condition: strings.TrimSpace(m[2]), Line: i + 1})
	}
	return out
}

// isSignificant reports whether a line marks the boundary of the header/
// footer span: it contains '{' or ends with ';', and is not itself a
// comment- or preprocessor-only line.
func isSignificant(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "#") {
		return false
	}
	return strings.Contains(line, "{") || strings.HasSuffix(t, ";")
}

// HeaderFooter returns the header span (everything before the first
// significant line) and footer span (everything after the last),
// per spec.md §4.7.
func HeaderFooter(source []byte) (header, footer string) {
	lines := splitLines(source)
	first := -1
	for i, l := range lines {
		if isSignificant(l) {
			first = i
			break
		}
	}
	if first == -1 {
		return strings.TrimRight(string(source), "\n"), ""
	}
	header = strings.Join(lines[:first], "\n")

	last := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if isSignificant(lines[i]) {
			last = i
			break
		}
	}
	footer = strings.Join(lines[last+1:], "\n")
	return header, footer
}

// DependencyGraph classifies every resolved include by the logical role
// its path suggests (spec.md §4.7's heuristic).
func DependencyGraph(includes []layout.IncludeDescriptor) layout.DependencyGraph {
	g := layout.DependencyGraph{Roles: make(map[string]string)}
	for _, inc := range includes {
		if strings.HasPrefix(inc.Resolution, "[system] ") || strings.HasPrefix(inc.Resolution, "[local] ") {
			g.Unresolved = append(g.Unresolved, inc.Path)
			continue
		}
		g.ResolvedIncludes = append(g.ResolvedIncludes, inc.Resolution)
		switch {
		case strings.Contains(inc.Path, "behaviors"):
			g.Roles[inc.Resolution] = "[behaviors_dtsi]"
		case strings.Contains(inc.Path, "keys"):
			g.Roles[inc.Resolution] = "[key_definitions]"
		case strings.Contains(inc.Path, "bt"):
			g.Roles[inc.Resolution] = "[bluetooth]"
		}
	}
	return g
}

// Extract runs the full C7 pass: AST-sourced comments/directives plus
// raw-source includes/directives/header/footer/dependency-graph,
// assembled into a KeymapMetadata. Provenance is left zero-valued; the
// import orchestrator (C10) owns stamping parsing method/mode/source.
func Extract(source []byte, roots []*dtast.Node) *layout.KeymapMetadata {
	includes := ExtractIncludes(source)
	header, footer := HeaderFooter(source)
	directives := append(ExtractDirectives(roots), ExtractRawDirectives(source)...)
	return &layout.KeymapMetadata{
		Comments:     ExtractComments(roots),
		Includes:     includes,
		Directives:   directives,
		Header:       header,
		Footer:       footer,
		Dependencies: DependencyGraph(includes),
	}
}

func splitLines(source []byte) []string {
	return strings.Split(string(source), "\n")
}
