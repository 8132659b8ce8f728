package layerdecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/internal/dtlex"
	"github.com/zmk-layout/layoutkit/internal/dtparse"
	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/layerdecode"
	"github.com/zmk-layout/layoutkit/pkg/layout"
)

const sampleKeymapSrc = `
/ {
	keymap {
		compatible = "zmk,keymap";
		layer_default {
			bindings = <&kp A>, <&kp B>, <&mo 1>;
		};
		layer_lower {
			bindings = <&trans>, <&kp C4>, <&none>;
		};
	};
};`

func TestDecodeOrderedLayers(t *testing.T) {
	toks, err := dtlex.Tokenize([]byte(sampleKeymapSrc), dtlex.Options{})
	require.NoError(t, err)
	tree, errs := dtparse.Parse(toks)
	require.Empty(t, errs)

	collector := diag.NewCollector()
	names, layers := layerdecode.Decode(collector, tree.Roots)
	require.Equal(t, []string{"default", "lower"}, names)
	require.Len(t, layers, 2)
	require.Len(t, layers[0], 3)
	assert.Equal(t, "&kp", layers[0][0].Value)
	assert.Equal(t, "A", layers[0][0].Params[0].Value)
	assert.Equal(t, "&mo", layers[0][2].Value)
	assert.False(t, collector.HasErrors())
}

func TestDecodeMissingBindingsWarns(t *testing.T) {
	src := `/ {
		keymap {
			layer_default {
			};
		};
	};`
	toks, err := dtlex.Tokenize([]byte(src), dtlex.Options{})
	require.NoError(t, err)
	tree, errs := dtparse.Parse(toks)
	require.Empty(t, errs)

	collector := diag.NewCollector()
	names, layers := layerdecode.Decode(collector, tree.Roots)
	require.Equal(t, []string{"default"}, names)
	assert.Empty(t, layers[0])
	warnings := collector.BySeverity()[diag.SevWarning]
	require.Len(t, warnings, 1)
}

func TestDecodeNoKeymapNodeYieldsEmpty(t *testing.T) {
	src := `/ { foo { bar = "baz"; }; };`
	toks, err := dtlex.Tokenize([]byte(src), dtlex.Options{})
	require.NoError(t, err)
	tree, errs := dtparse.Parse(toks)
	require.Empty(t, errs)

	collector := diag.NewCollector()
	names, layers := layerdecode.Decode(collector, tree.Roots)
	assert.Empty(t, names)
	assert.Empty(t, layers)
}

func TestValidateLayerReferencesFlagsOutOfRange(t *testing.T) {
	layerNames := []string{"default", "lower"}
	layers := [][]layout.Binding{
		{
			{Value: "&mo", Params: []layout.LayoutParam{{Value: int64(1)}}},
			{Value: "&to", Params: []layout.LayoutParam{{Value: int64(5)}}},
		},
		{
			{Value: "&lt", Params: []layout.LayoutParam{{Value: int64(0)}, {Value: "A"}}},
		},
	}

	collector := diag.NewCollector()
	layerdecode.ValidateLayerReferences(collector, layerNames, layers)

	warnings := collector.BySeverity()[diag.SevWarning]
	require.Len(t, warnings, 1)
	assert.Equal(t, diag.KindReference, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "&to")
	assert.Contains(t, warnings[0].Message, "5")
}

func TestValidateLayerReferencesIgnoresUnrelatedBindings(t *testing.T) {
	layerNames := []string{"default"}
	layers := [][]layout.Binding{
		{{Value: "&kp", Params: []layout.LayoutParam{{Value: "A"}}}},
	}

	collector := diag.NewCollector()
	layerdecode.ValidateLayerReferences(collector, layerNames, layers)

	assert.Empty(t, collector.Diagnostics)
}
