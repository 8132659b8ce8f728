package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/internal/dtlex"
	"github.com/zmk-layout/layoutkit/internal/dtparse"
	"github.com/zmk-layout/layoutkit/pkg/layout"
	"github.com/zmk-layout/layoutkit/pkg/metadata"
)

func TestExtractIncludesAngleAndQuote(t *testing.T) {
	src := "#include <dt-bindings/zmk/keys.h>\n#include \"./my_behaviors.dtsi\"\n/ { };"
	includes := metadata.ExtractIncludes([]byte(src))
	require.Len(t, includes, 2)
	assert.True(t, includes[0].Angled)
	assert.Equal(t, "dt-bindings/zmk/keys.h", includes[0].Path)
	assert.False(t, includes[1].Angled)
	assert.Equal(t, "./my_behaviors.dtsi", includes[1].Path)
}

func TestExtractIncludesUnresolvedSentinel(t *testing.T) {
	src := "#include <definitely/not/a/real/path.h>\n"
	includes := metadata.ExtractIncludes([]byte(src))
	require.Len(t, includes, 1)
	assert.Equal(t, "[system] definitely/not/a/real/path.h", includes[0].Resolution)
}

func TestHeaderFooterSpans(t *testing.T) {
	src := "// license header\n// second line\n\n/ {\n\tfoo = \"bar\";\n};\n\n// trailer comment\n"
	header, footer := metadata.HeaderFooter([]byte(src))
	assert.Contains(t, header, "license header")
	assert.Contains(t, header, "second line")
	assert.Contains(t, footer, "trailer comment")
}

func TestExtractRawDirectivesOutsideNodeBody(t *testing.T) {
	src := "#ifdef FOO\n#include <bar.h>\n/ { };\n#endif\n"
	directives := metadata.ExtractRawDirectives([]byte(src))
	require.Len(t, directives, 2)
	assert.Equal(t, "ifdef", directives[0].Name)
	assert.Equal(t, "FOO", directives[0].Condition)
	assert.Equal(t, "endif", directives[1].Name)
}

func TestDependencyGraphClassification(t *testing.T) {
	includes := []layout.IncludeDescriptor{
		{Path: "./zmk-helpers/behaviors.dtsi", Resolution: "/abs/zmk-helpers/behaviors.dtsi"},
		{Path: "./keys.dtsi", Resolution: "/abs/keys.dtsi"},
		{Path: "./bt.dtsi", Resolution: "/abs/bt.dtsi"},
		{Path: "./unrelated.dtsi", Resolution: "[local] ./unrelated.dtsi"},
	}
	graph := metadata.DependencyGraph(includes)
	assert.Equal(t, "[behaviors_dtsi]", graph.Roles["/abs/zmk-helpers/behaviors.dtsi"])
	assert.Equal(t, "[key_definitions]", graph.Roles["/abs/keys.dtsi"])
	assert.Equal(t, "[bluetooth]", graph.Roles["/abs/bt.dtsi"])
	assert.Contains(t, graph.Unresolved, "./unrelated.dtsi")
	assert.Len(t, graph.ResolvedIncludes, 3)
}

func TestExtractCommentsCategorizedByEnclosingNode(t *testing.T) {
	src := `/ {
		behaviors {
			// a behavior comment
			hm: homerow_mods {
				compatible = "zmk,behavior-hold-tap";
			};
		};
	};`
	toks, err := dtlex.Tokenize([]byte(src), dtlex.Options{})
	require.NoError(t, err)
	tree, errs := dtparse.Parse(toks)
	require.Empty(t, errs)

	comments := metadata.ExtractComments(tree.Roots)
	require.Len(t, comments, 1)
	assert.Equal(t, "behaviors", comments[0].Category)
}

func TestExtractFullMetadata(t *testing.T) {
	src := `// top header
#include <dt-bindings/zmk/keys.h>

/ {
	keymap {
		compatible = "zmk,keymap";
	};
};
`
	toks, err := dtlex.Tokenize([]byte(src), dtlex.Options{})
	require.NoError(t, err)
	tree, errs := dtparse.Parse(toks)
	require.Empty(t, errs)

	md := metadata.Extract([]byte(src), tree.Roots)
	require.Len(t, md.Includes, 1)
	assert.Contains(t, md.Header, "top header")
}
