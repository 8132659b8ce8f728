package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/pkg/diff"
	"github.com/zmk-layout/layoutkit/pkg/layout"
)

func baseLayout() *layout.Layout {
	l := layout.New("corne", "My Layout")
	l.UUID = "base-uuid"
	l.Version = "1"
	l.LayerNames = []string{"default", "lower"}
	l.Layers = [][]layout.Binding{
		{{Value: "&kp", Params: []layout.LayoutParam{{Value: "A"}}}, {Value: "&kp", Params: []layout.LayoutParam{{Value: "B"}}}},
		{{Value: "&kp", Params: []layout.LayoutParam{{Value: "1"}}}, {Value: "&kp", Params: []layout.LayoutParam{{Value: "2"}}}},
	}
	l.HoldTaps = []layout.HoldTap{{Name: "&hm", Bindings: []string{"&kp", "&kp"}, Flavor: "balanced"}}
	l.Title = "My Layout"
	return l
}

func TestLayoutsNoChangesProducesEmptyDiff(t *testing.T) {
	base := baseLayout()
	doc := diff.Layouts(base, base, "2026-07-31T00:00:00Z")
	assert.Equal(t, diff.DiffType, doc.DiffType)
	assert.Empty(t, doc.Layers.Added)
	assert.Empty(t, doc.Layers.Removed)
	assert.Empty(t, doc.Layers.Modified)
	assert.Empty(t, doc.HoldTaps.Added)
	assert.Empty(t, doc.HoldTaps.Modified)
	assert.Empty(t, doc.Metadata)
}

func TestLayoutsDetectsAddedLayer(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.LayerNames = append(modified.LayerNames, "raise")
	modified.Layers = append(modified.Layers, []layout.Binding{{Value: "&kp", Params: []layout.LayoutParam{{Value: "3"}}}})

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Len(t, doc.Layers.Added, 1)
	assert.Equal(t, "raise", doc.Layers.Added[0].Name)
	assert.Equal(t, 2, doc.Layers.Added[0].NewPosition)
	assert.Empty(t, doc.Layers.Removed)
}

func TestLayoutsDetectsRemovedLayer(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.LayerNames = []string{"default"}
	modified.Layers = [][]layout.Binding{modified.Layers[0]}

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Len(t, doc.Layers.Removed, 1)
	assert.Equal(t, "lower", doc.Layers.Removed[0].Name)
	assert.Equal(t, 1, doc.Layers.Removed[0].OriginalPosition)
}

func TestLayoutsDetectsModifiedLayerBindingRow(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.Layers[0] = []layout.Binding{
		{Value: "&kp", Params: []layout.LayoutParam{{Value: "A"}}},
		{Value: "&kp", Params: []layout.LayoutParam{{Value: "C"}}},
		{Value: "&kp", Params: []layout.LayoutParam{{Value: "D"}}},
	}

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Contains(t, doc.Layers.Modified, "default")
	mod := doc.Layers.Modified["default"]
	assert.False(t, mod.PositionChanged)
	require.Len(t, mod.Patch, 2)
	assert.Equal(t, "replace", mod.Patch[0].Op)
	assert.Equal(t, "1", mod.Patch[0].Path)
	assert.Equal(t, "add", mod.Patch[1].Op)
	assert.Equal(t, "2", mod.Patch[1].Path)
}

func TestLayoutsDetectsLayerPositionChange(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.LayerNames = []string{"lower", "default"}
	modified.Layers = [][]layout.Binding{base.Layers[1], base.Layers[0]}

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Contains(t, doc.Layers.Modified, "default")
	assert.True(t, doc.Layers.Modified["default"].PositionChanged)
	assert.Equal(t, 0, doc.Layers.Modified["default"].OriginalPosition)
	assert.Equal(t, 1, doc.Layers.Modified["default"].NewPosition)
}

func TestLayoutsDetectsBehaviorAddedAndModified(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.HoldTaps[0].Flavor = "tap-preferred"
	modified.HoldTaps = append(modified.HoldTaps, layout.HoldTap{Name: "&hm2", Bindings: []string{"&kp", "&kp"}})

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Len(t, doc.HoldTaps.Added, 1)
	assert.Equal(t, "&hm2", doc.HoldTaps.Added[0].Name)
	require.Contains(t, doc.HoldTaps.Modified, "&hm")
	patch := doc.HoldTaps.Modified["&hm"].Patch
	require.Len(t, patch, 1)
	assert.Equal(t, "replace", patch[0].Op)
	assert.Equal(t, "/flavor", patch[0].Path)
	assert.Equal(t, "tap-preferred", patch[0].Value)
}

func TestLayoutsDetectsBehaviorRemoved(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.HoldTaps = nil

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Len(t, doc.HoldTaps.Removed, 1)
	assert.Equal(t, "&hm", doc.HoldTaps.Removed[0].Name)
}

func TestLayoutsDetectsMetadataScalarChange(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.Title = "New Title"
	modified.Creator = "someone"

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	require.Contains(t, doc.Metadata, "title")
	assert.Equal(t, "replace", doc.Metadata["title"][0].Op)
	assert.Equal(t, "New Title", doc.Metadata["title"][0].Value)
	require.Contains(t, doc.Metadata, "creator")
}

func TestLayoutsHeaderFieldsFromLayouts(t *testing.T) {
	base := baseLayout()
	modified := baseLayout()
	modified.UUID = "mod-uuid"
	modified.Version = "2"

	doc := diff.Layouts(base, modified, "2026-07-31T00:00:00Z")
	assert.Equal(t, "layout_diff_v2", doc.DiffType)
	assert.Equal(t, "base-uuid", doc.BaseUUID)
	assert.Equal(t, "mod-uuid", doc.ModifiedUUID)
	assert.Equal(t, "1", doc.BaseVersion)
	assert.Equal(t, "2", doc.ModifiedVersion)
	assert.Equal(t, "2026-07-31T00:00:00Z", doc.Timestamp)
}
