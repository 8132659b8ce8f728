package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/importer"
	"github.com/zmk-layout/layoutkit/pkg/section"
)

const fullSource = `// license header
#include <dt-bindings/zmk/keys.h>

/ {
	behaviors {
		hm: homerow_mods {
			compatible = "zmk,behavior-hold-tap";
			#binding-cells = <2>;
			bindings = <&kp>, <&kp>;
		};
	};

	macros {
		zm: zoom_macro {
			compatible = "zmk,behavior-macro-one-param";
			bindings = <&kp A>;
		};
	};

	combos {
		combo_esc {
			key-positions = <0 1>;
			bindings = <&kp ESC>;
		};
	};

	keymap {
		compatible = "zmk,keymap";
		layer_default {
			bindings = <&kp A>, <&kp B>;
		};
	};

	chosen {
		zmk,matrix_transform = &default_transform;
	};
};
`

func TestFullImportAssemblesLayout(t *testing.T) {
	result := importer.Full("my_keyboard", "My Layout", "my_keyboard.keymap", []byte(fullSource))
	require.True(t, result.Success)
	require.NotNil(t, result.Layout)

	l := result.Layout
	require.Len(t, l.HoldTaps, 1)
	assert.Equal(t, "&hm", l.HoldTaps[0].Name)
	require.Len(t, l.Macros, 1)
	require.Len(t, l.Combos, 1)
	assert.Equal(t, []string{"default"}, l.LayerNames)
	require.Len(t, l.Layers, 1)
	assert.Len(t, l.Layers[0], 2)

	require.NotNil(t, l.KeymapMetadata)
	assert.Equal(t, "full", l.KeymapMetadata.Provenance.ParsingMode)
	assert.Contains(t, l.KeymapMetadata.Header, "license header")
	assert.Contains(t, l.CustomDevicetree, "chosen")
}

const outOfRangeReferenceSource = `/ {
	keymap {
		compatible = "zmk,keymap";
		layer_default {
			bindings = <&kp A>, <&mo 9>;
		};
	};
};
`

func TestFullImportFlagsOutOfRangeLayerReference(t *testing.T) {
	result := importer.Full("kb", "t", "kb.keymap", []byte(outOfRangeReferenceSource))
	require.True(t, result.Success)

	var found bool
	for _, w := range result.Warnings {
		if w.Kind == diag.KindReference {
			found = true
			assert.Contains(t, w.Message, "&mo")
		}
	}
	assert.True(t, found, "expected a KindReference warning for the out-of-range &mo binding")
}

func TestFullImportLexErrorFails(t *testing.T) {
	result := importer.Full("kb", "t", "bad.keymap", []byte("/ { foo = \"unterminated; };"))
	assert.False(t, result.Success)
	assert.Nil(t, result.Layout)
	require.NotEmpty(t, result.Errors)
}

func TestTemplateAwareAssemblesFromSections(t *testing.T) {
	src := "// behaviors start\nhm: homerow_mods {\n\tcompatible = \"zmk,behavior-hold-tap\";\n\tbindings = <&kp>, <&kp>;\n};\n// behaviors end\n"
	configs := []section.ExtractionConfig{
		{
			TplCtxName: "user_behaviors_dtsi",
			Type:       section.TypeBehavior,
			Delimiter:  section.Delimiter{Start: "// behaviors start", End: "// behaviors end"},
		},
	}
	result := importer.TemplateAware("kb", "t", "kb.keymap", []byte(src), stubProfile{configs})
	require.True(t, result.Success)
	require.Len(t, result.Layout.HoldTaps, 1)
	assert.Contains(t, result.Layout.Variables["user_behaviors_dtsi"], "homerow_mods")
	assert.Equal(t, "template", result.Layout.KeymapMetadata.Provenance.ParsingMode)
}

type stubProfile struct {
	configs []section.ExtractionConfig
}

func (s stubProfile) KeyCount() int                              { return 42 }
func (s stubProfile) AllowedHoldTapFlavors() []string             { return nil }
func (s stubProfile) ExtractionConfig() []section.ExtractionConfig { return s.configs }
