// Package template implements the Variable Resolver (spec.md §4.11,
// C11): simple "${name}" substitution and "{{ expr }}" attribute/index
// interpolation over the generic JSON-like form of a Layout.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/zmk-layout/layoutkit/pkg/diag"
)

var (
	simpleVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	exprRe      = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
)

// skipGuard is the ambient "skip variable resolution" flag (spec.md
// §5): a scoped, re-entrant marker rather than a single boolean, so
// nested callers (e.g. a raw-file editor invoked from within another
// skip-scoped operation) compose correctly instead of one release
// undoing another's acquisition. Mirrors the mutex-guarded counter
// shape hive/namecache/cache.go uses for its own shared concurrent
// state.
type skipGuard struct {
	mu    sync.Mutex
	depth int
}

var guard skipGuard

// AcquireSkip marks variable resolution as suspended for the scope of
// the caller's operation; calling the returned release function ends
// that scope. Nested acquisitions compose: resolution stays suspended
// until every acquisition in the current nesting has been released.
func AcquireSkip() (release func()) {
	guard.mu.Lock()
	guard.depth++
	guard.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			guard.mu.Lock()
			guard.depth--
			guard.mu.Unlock()
		})
	}
}

// SkipActive reports whether any scope currently has resolution
// suspended.
func SkipActive() bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.depth > 0
}

// Resolve recursively substitutes "${name}" and "{{ expr }}" tokens
// throughout value (a JSON-like graph: map[string]any, []any, or a
// scalar), using vars as the top-level variable namespace. Unknown
// variables are reported to sink and left in place, never causing the
// whole pass to fail. A no-op (returns value unchanged) while
// SkipActive().
func Resolve(sink diag.Sink, value any, vars map[string]any) any {
	if sink == nil {
		sink = diag.NopSink{}
	}
	if SkipActive() {
		return value
	}
	return resolve(sink, value, vars)
}

func resolve(sink diag.Sink, value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		return resolveString(sink, v, vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = resolve(sink, child, vars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = resolve(sink, child, vars)
		}
		return out
	default:
		return value
	}
}

func resolveString(sink diag.Sink, s string, vars map[string]any) string {
	s = simpleVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := simpleVarRe.FindStringSubmatch(match)[1]
		val, ok := vars[name]
		if !ok {
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindTemplate,
				Message:  "unresolved variable ${" + name + "}",
			})
			return match
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return match
		}
		return strings.Trim(string(encoded), `"`)
	})

	return exprRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := exprRe.FindStringSubmatch(match)
		expr := strings.TrimSpace(sub[1])
		val, ok := evalExpr(expr, vars)
		if !ok {
			sink.Emit(diag.Diagnostic{
				Severity: diag.SevWarning,
				Kind:     diag.KindTemplate,
				Message:  "unresolved expression {{ " + expr + " }}",
			})
			return match
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return match
		}
		return strings.Trim(string(encoded), `"`)
	})
}

// evalExpr resolves a minimal expression: a dotted/indexed path into
// vars, e.g. "profile.key_count" or "layers[0]". No arithmetic,
// comparisons, or function calls — just attribute and index access, the
// floor spec.md §4.11 sets.
func evalExpr(expr string, vars map[string]any) (any, bool) {
	tokens := tokenizePath(expr)
	if len(tokens) == 0 {
		return nil, false
	}
	cur, ok := vars[tokens[0]]
	if !ok {
		return nil, false
	}
	for _, tok := range tokens[1:] {
		if idx, err := strconv.Atoi(tok); err == nil {
			slice, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(slice) {
				return nil, false
			}
			cur = slice[idx]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[tok]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

var pathTokenRe = regexp.MustCompile(`[^.\[\]]+`)

func tokenizePath(expr string) []string {
	return pathTokenRe.FindAllString(expr, -1)
}

// ToFlattenedDict resolves every template reference in serialized (the
// generic JSON-like form produced by encoding/json against a Layout)
// against its own top-level "variables" map, then returns the result
// with "variables" removed — spec.md §4.11's to_flattened_dict().
// Idempotent: running it again on an already-flattened map (no
// "variables" key, no remaining template tokens) returns the input
// unchanged.
func ToFlattenedDict(sink diag.Sink, serialized map[string]any) map[string]any {
	vars, _ := serialized["variables"].(map[string]any)
	out := make(map[string]any, len(serialized))
	for k, v := range serialized {
		if k == "variables" {
			continue
		}
		out[k] = resolveIfNeeded(sink, v, vars)
	}
	return out
}

func resolveIfNeeded(sink diag.Sink, value any, vars map[string]any) any {
	if len(vars) == 0 {
		return value
	}
	return Resolve(sink, value, vars)
}
