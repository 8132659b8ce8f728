package dtast

import "strings"

// Tree holds every root parsed from a single source: the primary `/ { ...
// };` root plus any `&label { ... };` reference-node modifications and
// stray top-level nodes (spec.md §3.1: "Multiple root nodes may exist").
type Tree struct {
	Roots []*Node
}

// NewTree returns an empty multi-root tree.
func NewTree() *Tree {
	return &Tree{}
}

// AddRoot appends a root node.
func (t *Tree) AddRoot(n *Node) {
	t.Roots = append(t.Roots, n)
}

// Walk performs a pre-order traversal across every root, calling visit for
// each node. Traversal stops early if visit returns false.
func (t *Tree) Walk(visit func(*Node) bool) {
	for _, root := range t.Roots {
		if !walkNode(root, visit) {
			return
		}
	}
}

func walkNode(n *Node, visit func(*Node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.Children() {
		if !walkNode(c, visit) {
			return false
		}
	}
	return true
}

// FindNodeByPath resolves a slash-separated path against the tree's roots.
// The path may start with "/" for the primary root, or name a root
// directly (e.g. a reference node's label).
func (t *Tree) FindNodeByPath(path string) *Node {
	segs := splitPath(path)
	for _, root := range t.Roots {
		if len(segs) == 0 {
			return root
		}
		if found := findByPathSegments(root, segs); found != nil {
			return found
		}
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func findByPathSegments(n *Node, segs []string) *Node {
	if len(segs) == 0 {
		return n
	}
	child := n.ChildByName(segs[0])
	if child == nil {
		return nil
	}
	return findByPathSegments(child, segs[1:])
}

// FindNodesByCompatible returns every node (across all roots) whose
// "compatible" property contains the given substring in any of its
// values (spec.md §4.3).
func (t *Tree) FindNodesByCompatible(substr string) []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.HasCompatibleSubstring(substr) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// AllNodes returns every node across all roots in pre-order.
func (t *Tree) AllNodes() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}
