package dtparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/internal/dtlex"
	"github.com/zmk-layout/layoutkit/pkg/dtast"
)

func mustTokenize(t *testing.T, src string) []dtlex.Token {
	t.Helper()
	toks, err := dtlex.Tokenize([]byte(src), dtlex.Options{})
	require.NoError(t, err)
	return toks
}

func TestParseRootNode(t *testing.T) {
	src := `/ { foo = "bar"; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	require.Len(t, tree.Roots, 1)
	root := tree.Roots[0]
	assert.Equal(t, "/", root.Name)
	prop := root.GetProperty("foo")
	require.NotNil(t, prop)
	assert.Equal(t, "bar", prop.Value.Str)
}

func TestParseNestedLabeledChildren(t *testing.T) {
	src := `/ {
		keymap {
			compatible = "zmk,keymap";
			layer_default {
				bindings = <&kp A &kp B>;
			};
		};
	};`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	keymap := tree.Roots[0].ChildByName("keymap")
	require.NotNil(t, keymap)
	assert.ElementsMatch(t, []string{"zmk,keymap"}, keymap.Compatible())
	layer := keymap.ChildByName("layer_default")
	require.NotNil(t, layer)
	bindings := layer.GetProperty("bindings")
	require.NotNil(t, bindings)
	assert.Equal(t, dtast.KindArray, bindings.Value.Kind)
	assert.Len(t, bindings.Value.Elements, 4)
}

func TestParseReferenceNodeModification(t *testing.T) {
	src := `&kscan0 { wakeup-source; debounce-press-ms = <3>; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	require.Len(t, tree.Roots, 1)
	node := tree.Roots[0]
	assert.Equal(t, "kscan0", node.Label)
	wake := node.GetProperty("wakeup-source")
	require.NotNil(t, wake)
	assert.Nil(t, wake.Value) // presence-only boolean property
}

func TestParseLabeledNodeWithUnitAddress(t *testing.T) {
	src := `/ { behaviors { hm: homerow_mods@0 { compatible = "zmk,behavior-hold-tap"; }; }; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	behaviors := tree.Roots[0].ChildByName("behaviors")
	require.NotNil(t, behaviors)
	hm := behaviors.ChildByName("homerow_mods")
	require.NotNil(t, hm)
	assert.Equal(t, "hm", hm.Label)
	assert.Equal(t, "0", hm.UnitAddress)
	assert.Equal(t, "hm", hm.IdentityName())
}

func TestParseBindingGroupingRule(t *testing.T) {
	src := `/ { x { bindings = <&kp Q &hm LCTRL A>; }; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	x := tree.Roots[0].ChildByName("x")
	bindings := x.GetProperty("bindings")
	groups := GroupBindingValues(Flatten(*bindings.Value))
	require.Len(t, groups, 2)
	assert.Equal(t, "kp", groups[0][0].Str)
	assert.Equal(t, []string{"kp", "Q"}, groupStrs(groups[0]))
	assert.Equal(t, []string{"hm", "LCTRL", "A"}, groupStrs(groups[1]))
}

func groupStrs(g []dtast.Value) []string {
	out := make([]string, len(g))
	for i, v := range g {
		out[i] = v.Str
	}
	return out
}

func TestParseNestedFunctionCallBinding(t *testing.T) {
	src := `/ { c { bindings = <&sk LA(LC(LSHFT))>; }; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	c := tree.Roots[0].ChildByName("c")
	bindings := c.GetProperty("bindings")
	elems := Flatten(*bindings.Value)
	require.Len(t, elems, 2)
	assert.Equal(t, dtast.KindReference, elems[0].Kind)
	assert.Equal(t, "sk", elems[0].Str)

	call := elems[1]
	assert.Equal(t, dtast.KindArray, call.Kind)
	assert.Equal(t, "LA", call.Str)
	require.Len(t, call.Elements, 1)
	inner := call.Elements[0]
	assert.Equal(t, "LC", inner.Str)
	require.Len(t, inner.Elements, 1)
	assert.Equal(t, "LSHFT", inner.Elements[0].Str)
}

func TestParseMultiValuePropertyBecomesArray(t *testing.T) {
	src := `/ { p { compatible = "a", "b"; }; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	p := tree.Roots[0].ChildByName("p")
	assert.ElementsMatch(t, []string{"a", "b"}, p.Compatible())
}

func TestParseRecoversFromMalformedMember(t *testing.T) {
	src := `/ { good = "x"; @@@; also-good = "y"; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.NotEmpty(t, errs)
	root := tree.Roots[0]
	assert.NotNil(t, root.GetProperty("good"))
	assert.NotNil(t, root.GetProperty("also-good"))
}

func TestParsePreservesComments(t *testing.T) {
	src := "/ {\n  // a header comment\n  foo = \"bar\";\n};"
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	root := tree.Roots[0]
	require.Len(t, root.Comments, 1)
	assert.Equal(t, "// a header comment", root.Comments[0].Text)
}

func TestParsePreservesPreprocessorDirective(t *testing.T) {
	src := "/ {\n  #ifdef FOO\n  foo = \"bar\";\n  #endif\n};"
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	root := tree.Roots[0]
	require.Len(t, root.Directives, 2)
	assert.Equal(t, "ifdef", root.Directives[0].Name)
	assert.Equal(t, "FOO", root.Directives[0].Condition)
	assert.Equal(t, "endif", root.Directives[1].Name)
}

func TestParseMultipleRoots(t *testing.T) {
	src := `/ { a = "1"; }; &kscan0 { b = "2"; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "/", tree.Roots[0].Name)
	assert.Equal(t, "kscan0", tree.Roots[1].Label)
}

func TestParseByteArray(t *testing.T) {
	src := `/ { p { mac = [01 02 ab]; }; };`
	tree, errs := Parse(mustTokenize(t, src))
	require.Empty(t, errs)
	p := tree.Roots[0].ChildByName("p")
	prop := p.GetProperty("mac")
	require.NotNil(t, prop)
	require.Len(t, prop.Value.Elements, 3)
	n, ok := prop.Value.Elements[2].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(0xab), n)
}

func TestParseNeverReturnsNilTree(t *testing.T) {
	tree, _ := Parse(mustTokenize(t, "!!! not devicetree at all ((("))
	assert.NotNil(t, tree)
}
