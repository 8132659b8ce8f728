package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/pkg/diag"
)

func TestConvertHoldTapSuccess(t *testing.T) {
	src := `/ {
		behaviors {
			// Balanced home row mod
			hm: homerow_mods {
				compatible = "zmk,behavior-hold-tap";
				#binding-cells = <2>;
				tapping-term-ms = <200>;
				quick-tap-ms = <150>;
				flavor = "balanced";
				hold-trigger-key-positions = <0 1 2>;
				retro-tap;
				bindings = <&kp>, <&kp>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	ht, err := ConvertHoldTap(collector, node)
	require.NoError(t, err)
	assert.Equal(t, "&hm", ht.Name)
	assert.Equal(t, "Balanced home row mod", ht.Description)
	require.NotNil(t, ht.TappingTermMs)
	assert.Equal(t, int64(200), *ht.TappingTermMs)
	require.NotNil(t, ht.QuickTapMs)
	assert.Equal(t, int64(150), *ht.QuickTapMs)
	assert.Equal(t, "balanced", ht.Flavor)
	assert.True(t, ht.RetroTap)
	assert.False(t, ht.HoldTriggerOnRelease)
	assert.Equal(t, []int64{0, 1, 2}, ht.HoldTriggerKeyPositions)
	assert.Len(t, ht.Bindings, 2)
	assert.False(t, collector.HasErrors())
}

func TestConvertHoldTapRejectsWrongBindingCount(t *testing.T) {
	src := `/ {
		behaviors {
			bad: bad_hold_tap {
				compatible = "zmk,behavior-hold-tap";
				bindings = <&kp>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	ht, err := ConvertHoldTap(collector, node)
	require.Error(t, err)
	assert.Nil(t, ht)
	assert.True(t, collector.HasErrors())
}

func TestConvertHoldTapUnrecognizedFlavorWarns(t *testing.T) {
	src := `/ {
		behaviors {
			hm: homerow_mods {
				compatible = "zmk,behavior-hold-tap";
				flavor = "weird-flavor";
				bindings = <&kp>, <&kp>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	ht, err := ConvertHoldTap(collector, node)
	require.NoError(t, err)
	assert.Equal(t, "weird-flavor", ht.Flavor)
	warnings := collector.BySeverity()[diag.SevWarning]
	require.Len(t, warnings, 1)
}

func TestConvertMacroBindingCellsPrecedence(t *testing.T) {
	src := `/ {
		macros {
			ZM: zoom_macro {
				compatible = "zmk,behavior-macro-one-param";
				#binding-cells = <2>;
				bindings = <&kp LG(LA(LC(Q)))>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	m := ConvertMacro(collector, node)
	assert.Equal(t, "&ZM", m.Name)
	assert.Equal(t, []string{"param1", "param2"}, m.Params)
	assert.False(t, collector.HasErrors())
	require.Len(t, m.Bindings, 1)
	assert.Equal(t, "&kp", m.Bindings[0].Value)
	require.Len(t, m.Bindings[0].Params, 1)
	assert.Equal(t, "LG", m.Bindings[0].Params[0].Value)
}

func TestConvertMacroCompatibleFallback(t *testing.T) {
	src := `/ {
		macros {
			m: macro_one {
				compatible = "zmk,behavior-macro-one-param";
				bindings = <&macro_param_1to1 &kp A>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	m := ConvertMacro(collector, node)
	assert.Equal(t, []string{"code"}, m.Params)
	warnings := collector.BySeverity()[diag.SevWarning]
	require.Len(t, warnings, 1)
}

func TestConvertMacroNoHintDefaultsEmpty(t *testing.T) {
	src := `/ {
		macros {
			m: mystery_macro {
				bindings = <&kp A>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	m := ConvertMacro(collector, node)
	assert.Equal(t, []string{}, m.Params)
	require.Len(t, collector.Diagnostics, 1)
}

func TestConvertComboSuccess(t *testing.T) {
	src := `/ {
		combos {
			combo_esc {
				key-positions = <0 1>;
				bindings = <&sk LA(LC(LSHFT))>;
				timeout-ms = <50>;
				layers = <0 1>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	c, err := ConvertCombo(collector, node)
	require.NoError(t, err)
	assert.Equal(t, "esc", c.Name)
	assert.Equal(t, []int64{0, 1}, c.KeyPositions)
	assert.Equal(t, "&sk", c.Binding.Value)
	require.Len(t, c.Binding.Params, 1)
	assert.Equal(t, "LA", c.Binding.Params[0].Value)
	assert.Equal(t, "LC", c.Binding.Params[0].Params[0].Value)
	require.NotNil(t, c.TimeoutMs)
	assert.Equal(t, int64(50), *c.TimeoutMs)
	assert.Equal(t, []int64{0, 1}, c.Layers)
}

func TestConvertComboMissingLayersUsesPlaceholder(t *testing.T) {
	src := `/ {
		combos {
			combo_tab {
				key-positions = <2 3>;
				bindings = <&kp TAB>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	c, err := ConvertCombo(collector, node)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1}, c.Layers)
}

func TestConvertComboMissingKeyPositionsRejected(t *testing.T) {
	src := `/ {
		combos {
			combo_bad {
				bindings = <&kp TAB>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]

	collector := diag.NewCollector()
	c, err := ConvertCombo(collector, node)
	require.Error(t, err)
	assert.Nil(t, c)
}

func TestConvertInputListener(t *testing.T) {
	src := `/ {
		glidepoint_input_listener: input_listener {
			input-processors = <&zip_xy_scaler 1 2>;
			layer_0 {
				layers = <0>;
				input-processors = <&zip_xy_scaler 1 1>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0]

	il := ConvertInputListener(node)
	assert.Equal(t, "glidepoint_input_listener", il.Code)
	require.Len(t, il.Nodes, 1)
	assert.Equal(t, "layer_0", il.Nodes[0].Name)
}

func TestExtractDescriptionFromParentComments(t *testing.T) {
	src := `/ {
		behaviors {
			// Left side home row mods
			// second line
			hm: homerow_mods {
				compatible = "zmk,behavior-hold-tap";
				bindings = <&kp>, <&kp>;
			};
		};
	};`
	tree := mustParse(t, src)
	node := tree.Roots[0].Children()[0].Children()[0]
	collector := diag.NewCollector()
	ht, err := ConvertHoldTap(collector, node)
	require.NoError(t, err)
	assert.Equal(t, "Left side home row mods\nsecond line", ht.Description)
}
