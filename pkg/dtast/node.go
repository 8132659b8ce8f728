package dtast

import (
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/diag"
)

// Comment is a single `//` or `/* */` comment attached to a Node, with its
// delimiters retained in Text so re-emission is lossless.
type Comment struct {
	Text    string
	IsBlock bool
	Pos     diag.Pos
}

// Directive is a preprocessor conditional or definition line (#ifdef,
// #define, #endif, ...).
type Directive struct {
	Name      string // "ifdef", "define", "endif", ...
	Condition string // text following the directive name, verbatim
	Pos       diag.Pos
}

// Property is a single Devicetree property: an identifier, an optional
// value, and its source position.
type Property struct {
	Name  string
	Value *Value
	Pos   diag.Pos
}

// Node is a single Devicetree node (spec.md §3.1). Properties and
// children are insertion-ordered; a child or property redefinition
// updates the existing slot rather than appending a duplicate (I1).
type Node struct {
	Name        string
	Label       string // prefix identifier before ':', if any
	UnitAddress string // suffix after '@', if any
	Pos         diag.Pos

	Comments   []Comment
	Directives []Directive

	propIndex  map[string]int
	properties []*Property

	childIndex map[string]int
	children   []*Node

	Parent *Node
}

// NewNode constructs an empty Node with the given identifier.
func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		propIndex: make(map[string]int),
		childIndex: make(map[string]int),
	}
}

// FullPath returns the slash-joined path from the nearest named ancestor
// chain down to this node, used for path-pattern matching (C4).
func (n *Node) FullPath() string {
	if n == nil {
		return ""
	}
	var segs []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		segs = append([]string{cur.identifier()}, segs...)
	}
	return "/" + strings.Join(segs, "/")
}

func (n *Node) identifier() string {
	if n.Label != "" {
		return n.Label + ":" + n.Name
	}
	if n.UnitAddress != "" {
		return n.Name + "@" + n.UnitAddress
	}
	return n.Name
}

// SetProperty adds a property, or updates the existing one of the same
// name (redefinition updates per I1).
func (n *Node) SetProperty(p *Property) {
	if idx, ok := n.propIndex[p.Name]; ok {
		n.properties[idx] = p
		return
	}
	n.propIndex[p.Name] = len(n.properties)
	n.properties = append(n.properties, p)
}

// Properties returns properties in insertion order.
func (n *Node) Properties() []*Property {
	return n.properties
}

// normalizePropName folds dashes and underscores together so lookups are
// insensitive to either spelling (P4: get_property("x-y-z") ==
// get_property("x_y_z")).
func normalizePropName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// GetProperty looks up a property by name, treating '-' and '_' as
// interchangeable (spec.md §4.3, P4).
func (n *Node) GetProperty(name string) *Property {
	target := normalizePropName(name)
	for _, p := range n.properties {
		if normalizePropName(p.Name) == target {
			return p
		}
	}
	return nil
}

// AddChild appends (or, on name collision, replaces) a child node,
// maintaining insertion order (I1).
func (n *Node) AddChild(c *Node) {
	c.Parent = n
	if idx, ok := n.childIndex[c.Name]; ok {
		n.children[idx] = c
		return
	}
	n.childIndex[c.Name] = len(n.children)
	n.children = append(n.children, c)
}

// Children returns child nodes in insertion order.
func (n *Node) Children() []*Node {
	return n.children
}

// ChildByName returns the child with the given name, or nil.
func (n *Node) ChildByName(name string) *Node {
	if idx, ok := n.childIndex[name]; ok {
		return n.children[idx]
	}
	return nil
}

// Compatible returns the node's "compatible" property as a slice of
// strings (an ARRAY property commonly holds several compatible strings;
// a scalar property holds exactly one).
func (n *Node) Compatible() []string {
	p := n.GetProperty("compatible")
	if p == nil || p.Value == nil {
		return nil
	}
	return p.Value.AsStringSlice()
}

// HasCompatibleSubstring reports whether any compatible string contains
// the given substring.
func (n *Node) HasCompatibleSubstring(substr string) bool {
	for _, c := range n.Compatible() {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// IdentityName returns Label if set, else Name — the common "pick a name"
// rule used throughout behavior conversion (spec.md §4.6).
func (n *Node) IdentityName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.Name
}
