package dtast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zmk-layout/layoutkit/pkg/diag"
)

func TestValueAsInt(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want int64
		ok   bool
	}{
		{"decimal", IntValue(42, "<42>"), 42, true},
		{"hex raw text", Value{Kind: KindString, Str: "0x2A", Raw: "0x2A"}, 42, true},
		{"single element array", ArrayValue([]Value{IntValue(7, "7")}, "<7>"), 7, true},
		{"multi element array", ArrayValue([]Value{IntValue(1, "1"), IntValue(2, "2")}, "<1 2>"), 0, false},
		{"non numeric string", StringValue("hello", `"hello"`), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.v.AsInt()
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestValueAsBool(t *testing.T) {
	assert.True(t, BoolValue(true, "").AsBool())
	assert.True(t, StringValue("yes", `"yes"`).AsBool())
	assert.True(t, StringValue("1", `"1"`).AsBool())
	assert.False(t, StringValue("no", `"no"`).AsBool())
	assert.True(t, IntValue(5, "<5>").AsBool())
	assert.False(t, IntValue(0, "<0>").AsBool())
}

func TestValueAsIntSliceSkipsUnconvertible(t *testing.T) {
	arr := ArrayValue([]Value{
		IntValue(1, "1"),
		StringValue("nope", `"nope"`),
		IntValue(3, "3"),
	}, "<1 nope 3>")

	collector := diag.NewCollector()
	got := arr.AsIntSlice(collector, diag.Pos{Line: 4})

	assert.Equal(t, []int64{1, 3}, got)
	assert.Len(t, collector.Diagnostics, 1)
	assert.Equal(t, diag.SevWarning, collector.Diagnostics[0].Severity)
}

func TestValueAsStringSlice(t *testing.T) {
	arr := ArrayValue([]Value{
		ReferenceValue("kp", "&kp"),
		StringValue("Q", "Q"),
	}, "<&kp Q>")
	assert.Equal(t, []string{"&kp", "Q"}, arr.AsStringSlice())
}
