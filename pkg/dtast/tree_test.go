package dtast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleTree() *Tree {
	tree := NewTree()
	root := NewNode("")
	keymap := NewNode("keymap")
	root.AddChild(keymap)
	layer0 := NewNode("layer_0")
	keymap.AddChild(layer0)

	behaviors := NewNode("behaviors")
	root.AddChild(behaviors)
	ht := NewNode("hm")
	ht.Label = "hm"
	v := StringValue("zmk,behavior-hold-tap", `"zmk,behavior-hold-tap"`)
	ht.SetProperty(&Property{Name: "compatible", Value: &v})
	behaviors.AddChild(ht)

	tree.AddRoot(root)
	return tree
}

func TestTreeFindNodeByPath(t *testing.T) {
	tree := buildSampleTree()
	n := tree.FindNodeByPath("/keymap/layer_0")
	require.NotNil(t, n)
	assert.Equal(t, "layer_0", n.Name)

	assert.Nil(t, tree.FindNodeByPath("/keymap/layer_9"))
}

func TestTreeFindNodesByCompatible(t *testing.T) {
	tree := buildSampleTree()
	found := tree.FindNodesByCompatible("zmk,behavior-hold-tap")
	require.Len(t, found, 1)
	assert.Equal(t, "hm", found[0].Label)
}

func TestTreeWalkStopsEarly(t *testing.T) {
	tree := buildSampleTree()
	var visited []string
	tree.Walk(func(n *Node) bool {
		visited = append(visited, n.Name)
		return n.Name != "keymap"
	})
	assert.Contains(t, visited, "keymap")
	assert.NotContains(t, visited, "layer_0")
}
