// Package walker provides predicate-driven traversal over one or more
// pkg/dtast trees (spec.md §4.4, C4): single-root and multi-root
// variants, each exposing find-by-predicate, find-by-name, find-by-label,
// find-by-path-pattern, find-by-compatible, and find-properties.
package walker

import (
	"errors"
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/dtast"
)

// ErrStop is returned by a visitor callback to end a walk early without
// signaling an error condition, the same early-exit convention the
// teacher's hive/walker package uses for its visitor callbacks.
var ErrStop = errors.New("stop walk")

// PropertyMatch pairs a property with the node that owns it, the shape
// find_properties returns (spec.md §4.4).
type PropertyMatch struct {
	Node     *dtast.Node
	Property *dtast.Property
}

// Walker traverses a fixed set of root nodes. A single-root walker is
// just a Walker with one root; NewSingle and NewMulti both return the
// same type since multi-root dedup falls out naturally from walking a
// node at most once per Walk call.
type Walker struct {
	roots []*dtast.Node
}

// NewSingle returns a Walker over exactly one root.
func NewSingle(root *dtast.Node) *Walker {
	if root == nil {
		return &Walker{}
	}
	return &Walker{roots: []*dtast.Node{root}}
}

// NewMulti returns a Walker over several roots. Traversal (and therefore
// every Find* method) visits each node at most once even if the same
// node is reachable from more than one root, matching spec.md §4.4:
// "Multi-root walker deduplicates by node identity across roots."
func NewMulti(roots []*dtast.Node) *Walker {
	return &Walker{roots: roots}
}

// FromTree returns a multi-root Walker over every root of t.
func FromTree(t *dtast.Tree) *Walker {
	if t == nil {
		return &Walker{}
	}
	return NewMulti(t.Roots)
}

// Walk visits every node reachable from the walker's roots in pre-order,
// each node exactly once, stopping early if visit returns ErrStop.
func (w *Walker) Walk(visit func(*dtast.Node) error) error {
	seen := make(map[*dtast.Node]bool)
	for _, root := range w.roots {
		if err := walkNode(root, seen, visit); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func walkNode(n *dtast.Node, seen map[*dtast.Node]bool, visit func(*dtast.Node) error) error {
	if n == nil || seen[n] {
		return nil
	}
	seen[n] = true
	if err := visit(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := walkNode(c, seen, visit); err != nil {
			return err
		}
	}
	return nil
}

// FindNodes returns every node for which predicate returns true.
func (w *Walker) FindNodes(predicate func(*dtast.Node) bool) []*dtast.Node {
	var out []*dtast.Node
	_ = w.Walk(func(n *dtast.Node) error {
		if predicate(n) {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// FindNodesByName returns every node whose Name matches exactly.
func (w *Walker) FindNodesByName(name string) []*dtast.Node {
	return w.FindNodes(func(n *dtast.Node) bool { return n.Name == name })
}

// FindNodesByLabel returns every node whose Label matches exactly.
func (w *Walker) FindNodesByLabel(label string) []*dtast.Node {
	return w.FindNodes(func(n *dtast.Node) bool { return n.Label == label })
}

// FindNodesByPathPattern returns every node whose FullPath contains
// pattern as a substring. When caseInsensitive is set, both the path and
// pattern are folded to lower case before comparison — a supplemental
// option absent from the distilled rule but present in the original
// implementation's ast_walker equivalent.
func (w *Walker) FindNodesByPathPattern(pattern string, caseInsensitive bool) []*dtast.Node {
	needle := pattern
	if caseInsensitive {
		needle = strings.ToLower(needle)
	}
	return w.FindNodes(func(n *dtast.Node) bool {
		path := n.FullPath()
		if caseInsensitive {
			path = strings.ToLower(path)
		}
		return strings.Contains(path, needle)
	})
}

// FindNodesByCompatible returns every node whose compatible property
// contains substr in any of its string values.
func (w *Walker) FindNodesByCompatible(substr string) []*dtast.Node {
	return w.FindNodes(func(n *dtast.Node) bool { return n.HasCompatibleSubstring(substr) })
}

// FindProperties returns every (node, property) pair for which predicate
// returns true, in traversal order.
func (w *Walker) FindProperties(predicate func(*dtast.Node, *dtast.Property) bool) []PropertyMatch {
	var out []PropertyMatch
	_ = w.Walk(func(n *dtast.Node) error {
		for _, p := range n.Properties() {
			if predicate(n, p) {
				out = append(out, PropertyMatch{Node: n, Property: p})
			}
		}
		return nil
	})
	return out
}
