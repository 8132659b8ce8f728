package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/template"
)

func TestResolveSimpleSubstitution(t *testing.T) {
	vars := map[string]any{"board": "corne"}
	collector := diag.NewCollector()
	out := template.Resolve(collector, "keyboard: ${board}", vars)
	assert.Equal(t, "keyboard: corne", out)
	assert.False(t, collector.HasErrors())
}

func TestResolveUnknownVariableLeftInPlace(t *testing.T) {
	collector := diag.NewCollector()
	out := template.Resolve(collector, "value: ${missing}", map[string]any{})
	assert.Equal(t, "value: ${missing}", out)
	require.Len(t, collector.Diagnostics, 1)
	assert.Equal(t, diag.SevWarning, collector.Diagnostics[0].Severity)
}

func TestResolveExpressionAttributeAccess(t *testing.T) {
	vars := map[string]any{"profile": map[string]any{"key_count": float64(42)}}
	collector := diag.NewCollector()
	out := template.Resolve(collector, "keys: {{ profile.key_count }}", vars)
	assert.Equal(t, "keys: 42", out)
}

func TestResolveExpressionIndexAccess(t *testing.T) {
	vars := map[string]any{"layers": []any{"default", "lower"}}
	collector := diag.NewCollector()
	out := template.Resolve(collector, "{{ layers[1] }}", vars)
	assert.Equal(t, "lower", out)
}

func TestResolveRecursesThroughMapsAndLists(t *testing.T) {
	vars := map[string]any{"name": "foo"}
	collector := diag.NewCollector()
	graph := map[string]any{
		"title": "${name} layout",
		"tags":  []any{"${name}", "static"},
	}
	out := template.Resolve(collector, graph, vars).(map[string]any)
	assert.Equal(t, "foo layout", out["title"])
	assert.Equal(t, []any{"foo", "static"}, out["tags"])
}

func TestResolveIdempotentOnAlreadyFlattened(t *testing.T) {
	collector := diag.NewCollector()
	once := template.Resolve(collector, "plain text, no templates", map[string]any{"x": "y"})
	twice := template.Resolve(collector, once, map[string]any{"x": "y"})
	assert.Equal(t, once, twice)
}

func TestSkipActiveSuspendsResolution(t *testing.T) {
	release := template.AcquireSkip()
	defer release()
	collector := diag.NewCollector()
	out := template.Resolve(collector, "${board}", map[string]any{"board": "corne"})
	assert.Equal(t, "${board}", out)
}

func TestAcquireSkipNestsCorrectly(t *testing.T) {
	release1 := template.AcquireSkip()
	release2 := template.AcquireSkip()
	release1()
	assert.True(t, template.SkipActive())
	release2()
	assert.False(t, template.SkipActive())
}

func TestToFlattenedDictRemovesVariablesKey(t *testing.T) {
	collector := diag.NewCollector()
	serialized := map[string]any{
		"variables": map[string]any{"board": "corne"},
		"title":     "${board} layout",
	}
	out := template.ToFlattenedDict(collector, serialized)
	_, hasVars := out["variables"]
	assert.False(t, hasVars)
	assert.Equal(t, "corne layout", out["title"])
}
