// Package patch implements the Patch Applier (spec.md §4.13, C13): the
// inverse of pkg/diff, applying a diff.Document back onto a base Layout.
package patch

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/diag"
	"github.com/zmk-layout/layoutkit/pkg/diff"
	"github.com/zmk-layout/layoutkit/pkg/layout"
)

// Apply produces modified such that, for any base/modified pair
// satisfying §3.2's invariants, Apply(base, diff.Layouts(base,
// modified, ts)) is structurally equal to modified. Operations
// targeting fields that no longer exist on the in-memory record are
// tolerated: logged to sink and skipped, never raised across the
// component boundary (spec.md §4.13 rule a).
func Apply(sink diag.Sink, base *layout.Layout, doc *diff.Document) *layout.Layout {
	if sink == nil {
		sink = diag.NopSink{}
	}
	out := clone(base)

	applyLayers(sink, out, doc.Layers)
	out.HoldTaps = applyBehaviors(sink, out.HoldTaps, doc.HoldTaps, func(h layout.HoldTap) string { return h.Name })
	out.Combos = applyBehaviors(sink, out.Combos, doc.Combos, func(c layout.Combo) string { return c.Name })
	out.Macros = applyBehaviors(sink, out.Macros, doc.Macros, func(m layout.Macro) string { return m.Name })
	out.InputListeners = applyBehaviors(sink, out.InputListeners, doc.InputListeners, func(i layout.InputListener) string { return i.Code })
	applyMetadata(sink, out, doc.Metadata)

	return out
}

func clone(l *layout.Layout) *layout.Layout {
	data, err := json.Marshal(l)
	if err != nil {
		c := *l
		return &c
	}
	var out layout.Layout
	if err := json.Unmarshal(data, &out); err != nil {
		c := *l
		return &c
	}
	return &out
}

// applyLayers rebuilds LayerNames/Layers in three passes: remove, then
// apply in-place row patches (which may also be position changes), then
// insert added layers at their recorded position. Position changes are
// realized as a remove-then-insert at new_position, ties broken by
// stable ordering (spec.md §4.13 rule b), matching pkg/diff's own
// position-aware layer diff shape.
func applyLayers(sink diag.Sink, l *layout.Layout, ld diff.LayersDiff) {
	type entry struct {
		name    string
		binding []layout.Binding
	}
	entries := make([]entry, len(l.LayerNames))
	for i, name := range l.LayerNames {
		entries[i] = entry{name: name, binding: l.Layers[i]}
	}

	removed := make(map[string]bool, len(ld.Removed))
	for _, r := range ld.Removed {
		removed[r.Name] = true
	}

	var kept []entry
	for _, e := range entries {
		if removed[e.name] {
			continue
		}
		if mod, ok := ld.Modified[e.name]; ok {
			e.binding = applyRowPatch(sink, e.binding, mod.Patch)
		}
		kept = append(kept, e)
	}

	type positioned struct {
		entry
		pos int
	}
	var withPos []positioned
	for _, e := range kept {
		pos := len(withPos)
		if mod, ok := ld.Modified[e.name]; ok && mod.PositionChanged {
			pos = mod.NewPosition
		}
		withPos = append(withPos, positioned{entry: e, pos: pos})
	}
	for _, a := range ld.Added {
		withPos = append(withPos, positioned{entry: entry{name: a.Name, binding: a.Bindings}, pos: a.NewPosition})
	}

	sort.SliceStable(withPos, func(i, j int) bool { return withPos[i].pos < withPos[j].pos })

	l.LayerNames = l.LayerNames[:0]
	l.Layers = l.Layers[:0]
	for _, p := range withPos {
		l.LayerNames = append(l.LayerNames, p.name)
		l.Layers = append(l.Layers, p.binding)
	}
}

// applyRowPatch rebuilds a binding row from the JSON-Patch ops pkg/diff
// produces for it (spec.md §4.13 rule d): replace/add by canonical
// decimal index, remove dropping the highest indices first so earlier
// indices stay valid.
func applyRowPatch(sink diag.Sink, row []layout.Binding, ops []diff.PatchOp) []layout.Binding {
	out := append([]layout.Binding(nil), row...)
	for _, op := range ops {
		idx, err := strconv.Atoi(op.Path)
		if err != nil {
			sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: non-index row path " + strconv.Quote(op.Path) + " skipped"})
			continue
		}
		switch op.Op {
		case "replace":
			if idx < 0 || idx >= len(out) {
				sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: replace index out of range, skipped"})
				continue
			}
			out[idx] = decodeBinding(op.Value)
		case "add":
			if idx == len(out) {
				out = append(out, decodeBinding(op.Value))
			} else if idx >= 0 && idx < len(out) {
				out = append(out[:idx], append([]layout.Binding{decodeBinding(op.Value)}, out[idx:]...)...)
			} else {
				sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: add index out of range, skipped"})
			}
		case "remove":
			if idx < 0 || idx >= len(out) {
				sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: remove index out of range, skipped"})
				continue
			}
			out = append(out[:idx], out[idx+1:]...)
		default:
			sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: unknown row op " + strconv.Quote(op.Op) + " skipped"})
		}
	}
	return out
}

func decodeBinding(value any) layout.Binding {
	data, err := json.Marshal(value)
	if err != nil {
		return layout.Binding{}
	}
	var b layout.Binding
	if err := json.Unmarshal(data, &b); err != nil {
		return layout.Binding{}
	}
	return b
}

// applyBehaviors is the generic inverse of pkg/diff's diffBehaviors:
// drop removed identities, append added records, and apply each
// modified record's JSON-Patch against the record's own generic form
// before decoding it back to T.
func applyBehaviors[T any](sink diag.Sink, base []T, bd diff.BehaviorsDiff, identity func(T) string) []T {
	removedNames := make(map[string]bool, len(bd.Removed))
	for _, r := range bd.Removed {
		removedNames[r.Name] = true
	}

	var out []T
	for _, item := range base {
		name := identity(item)
		if removedNames[name] {
			continue
		}
		if mod, ok := bd.Modified[name]; ok {
			out = append(out, applyRecordPatch(sink, item, mod.Patch))
			continue
		}
		out = append(out, item)
	}

	for _, a := range bd.Added {
		out = append(out, decodeRecord[T](a.Record))
	}
	return out
}

func applyRecordPatch[T any](sink diag.Sink, item T, ops []diff.PatchOp) T {
	generic := toGeneric(item)
	for _, op := range ops {
		var err error
		generic, err = applyJSONOp(generic, op)
		if err != nil {
			sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: " + err.Error()})
		}
	}
	return decodeRecord[T](generic)
}

// applyJSONOp applies one JSON-Patch op to a generic JSON value. A
// path of "" (scalar replace, spec.md §4.13 rule c) replaces the whole
// target outright. An op targeting a path segment absent from value is
// tolerated: it is logged and the value returned unchanged, not an
// error that aborts the whole patch.
func applyJSONOp(value any, op diff.PatchOp) (any, error) {
	if op.Path == "" {
		if op.Op == "remove" {
			return nil, nil
		}
		return op.Value, nil
	}
	segments := strings.Split(strings.TrimPrefix(op.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = unescapePathSegment(s)
	}
	return applyAtPath(value, segments, op)
}

func applyAtPath(value any, segments []string, op diff.PatchOp) (any, error) {
	if len(segments) == 0 {
		if op.Op == "remove" {
			return nil, nil
		}
		return op.Value, nil
	}

	head := segments[0]
	rest := segments[1:]

	if m, ok := value.(map[string]any); ok {
		if len(rest) == 0 {
			switch op.Op {
			case "remove":
				delete(m, head)
			case "add", "replace":
				m[head] = op.Value
			}
			return m, nil
		}
		child, ok := m[head]
		if !ok {
			return m, tolerableMissing(op.Path)
		}
		updated, err := applyAtPath(child, rest, op)
		if err == nil {
			m[head] = updated
		}
		return m, err
	}

	if a, ok := value.([]any); ok {
		idx, convErr := strconv.Atoi(head)
		if convErr != nil || idx < 0 || idx >= len(a) {
			return a, tolerableMissing(op.Path)
		}
		if len(rest) == 0 {
			switch op.Op {
			case "remove":
				a = append(a[:idx], a[idx+1:]...)
			case "add":
				a = append(a[:idx], append([]any{op.Value}, a[idx:]...)...)
			case "replace":
				a[idx] = op.Value
			}
			return a, nil
		}
		updated, err := applyAtPath(a[idx], rest, op)
		if err == nil {
			a[idx] = updated
		}
		return a, err
	}

	return value, tolerableMissing(op.Path)
}

type missingPathError string

func (e missingPathError) Error() string { return "path " + string(e) + " not present on record, skipped" }

func tolerableMissing(path string) error { return missingPathError(path) }

func unescapePathSegment(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

func toGeneric(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func decodeRecord[T any](generic any) T {
	var zero T
	data, err := json.Marshal(generic)
	if err != nil {
		return zero
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero
	}
	return out
}

// applyMetadata applies the metadata section's per-field replace ops
// (spec.md §4.13 rule c: path="" replaces the whole field) back onto
// the Layout's scalar fields.
func applyMetadata(sink diag.Sink, l *layout.Layout, md map[string][]diff.PatchOp) {
	for field, ops := range md {
		for _, op := range ops {
			if op.Op != "replace" && op.Op != "add" {
				continue
			}
			if !setScalarField(l, field, op.Value) {
				sink.Emit(diag.Diagnostic{Severity: diag.SevWarning, Kind: diag.KindPatch, Message: "patch applier: unknown metadata field " + strconv.Quote(field) + " skipped"})
			}
		}
	}
}

func setScalarField(l *layout.Layout, field string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	switch field {
	case "title":
		return decodeInto(data, &l.Title)
	case "creator":
		return decodeInto(data, &l.Creator)
	case "notes":
		return decodeInto(data, &l.Notes)
	case "tags":
		return decodeInto(data, &l.Tags)
	case "locale":
		return decodeInto(data, &l.Locale)
	case "uuid":
		return decodeInto(data, &l.UUID)
	case "parent_uuid":
		return decodeInto(data, &l.ParentUUID)
	case "date":
		return decodeInto(data, &l.Date)
	case "version":
		return decodeInto(data, &l.Version)
	case "base_version":
		return decodeInto(data, &l.BaseVersion)
	case "base_layout":
		return decodeInto(data, &l.BaseLayout)
	case "custom_defined_behaviors":
		return decodeInto(data, &l.CustomDefinedBehaviors)
	case "custom_devicetree":
		return decodeInto(data, &l.CustomDevicetree)
	default:
		return false
	}
}

func decodeInto(data []byte, target any) bool {
	return json.Unmarshal(data, target) == nil
}
