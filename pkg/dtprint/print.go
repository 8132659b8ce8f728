// Package dtprint renders a pkg/dtast subtree back to Devicetree text,
// used by the import orchestrator (C10) to preserve non-standard
// top-level content verbatim rather than discard it.
package dtprint

import (
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/dtast"
)

// Node renders a single node (and its properties and children,
// recursively) back to Devicetree source text, reusing each value's
// original Raw form so re-emission loses no information the parser
// didn't already normalize away.
func Node(n *dtast.Node) string {
	var b strings.Builder
	writeNode(&b, n, 0)
	return b.String()
}

// Nodes renders each of roots in turn, separated by a blank line.
func Nodes(roots []*dtast.Node) string {
	parts := make([]string, 0, len(roots))
	for _, r := range roots {
		parts = append(parts, Node(r))
	}
	return strings.Join(parts, "\n\n")
}

func writeNode(b *strings.Builder, n *dtast.Node, depth int) {
	indent := strings.Repeat("\t", depth)
	b.WriteString(indent)
	if n.Label != "" {
		b.WriteString(n.Label)
		b.WriteString(": ")
	}
	b.WriteString(n.Name)
	if n.UnitAddress != "" {
		b.WriteString("@")
		b.WriteString(n.UnitAddress)
	}
	b.WriteString(" {\n")

	for _, p := range n.Properties() {
		b.WriteString(indent)
		b.WriteString("\t")
		b.WriteString(p.Name)
		if p.Value != nil {
			b.WriteString(" = ")
			b.WriteString(p.Value.Raw)
		}
		b.WriteString(";\n")
	}
	for _, c := range n.Children() {
		writeNode(b, c, depth+1)
	}

	b.WriteString(indent)
	b.WriteString("};\n")
}
