// Package diff implements the Diff Engine (spec.md §4.12, C12):
// layer diff (position-aware), behavior diff (identity-keyed), and
// metadata scalar diff, assembled into the diff document of §3.5/§6.3.
package diff

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"

	"github.com/zmk-layout/layoutkit/pkg/layout"
)

// DiffType is the fixed discriminator stamped on every diff document
// (spec.md §3.5).
const DiffType = "layout_diff_v2"

// PatchOp is one JSON-Patch operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// LayerAdded/LayerRemoved/LayerModified are the three layer-diff shapes
// (spec.md §3.5).
type LayerAdded struct {
	Name        string           `json:"name"`
	NewPosition int              `json:"new_position"`
	Bindings    []layout.Binding `json:"bindings"`
}

type LayerRemoved struct {
	Name             string           `json:"name"`
	OriginalPosition int              `json:"original_position"`
	Bindings         []layout.Binding `json:"bindings"`
}

type LayerModified struct {
	OriginalPosition int       `json:"original_position"`
	NewPosition      int       `json:"new_position"`
	PositionChanged  bool      `json:"position_changed"`
	Patch            []PatchOp `json:"patch"`
}

// LayersDiff is the layers section of the diff document.
type LayersDiff struct {
	Added    []LayerAdded             `json:"added"`
	Removed  []LayerRemoved           `json:"removed"`
	Modified map[string]LayerModified `json:"modified"`
}

// BehaviorAdded/BehaviorRemoved/BehaviorModified are the tripartite
// shape every behavior section shares (spec.md §3.5).
type BehaviorAdded struct {
	Name   string `json:"name"`
	Record any    `json:"record"`
}

type BehaviorRemoved struct {
	Name   string `json:"name"`
	Record any    `json:"record"`
}

type BehaviorModified struct {
	Patch []PatchOp `json:"patch"`
}

// BehaviorsDiff is one behavior-section (hold-taps, combos, macros, or
// input-listeners) of the diff document.
type BehaviorsDiff struct {
	Added    []BehaviorAdded             `json:"added"`
	Removed  []BehaviorRemoved           `json:"removed"`
	Modified map[string]BehaviorModified `json:"modified"`
}

// Document is the diff document (spec.md §3.5/§6.3).
type Document struct {
	DiffType        string               `json:"diff_type"`
	BaseVersion     string               `json:"base_version"`
	ModifiedVersion string               `json:"modified_version"`
	BaseUUID        string               `json:"base_uuid"`
	ModifiedUUID    string               `json:"modified_uuid"`
	Timestamp       string               `json:"timestamp"`
	Layers          LayersDiff           `json:"layers"`
	HoldTaps        BehaviorsDiff        `json:"hold_taps"`
	Combos          BehaviorsDiff        `json:"combos"`
	Macros          BehaviorsDiff        `json:"macros"`
	InputListeners  BehaviorsDiff        `json:"input_listeners"`
	Metadata        map[string][]PatchOp `json:"metadata,omitempty"`
}

// metadataScalarFields names every metadata field spec.md §4.12 step 4
// diffs as a scalar replace-op list.
var metadataScalarFields = []string{
	"title", "creator", "notes", "tags", "locale", "uuid", "parent_uuid",
	"date", "version", "base_version", "base_layout",
	"custom_defined_behaviors", "custom_devicetree",
}

// Layouts computes the full diff document between base and modified
// (spec.md §4.12). timestamp is an ISO-8601 string supplied by the
// caller — this package performs no wall-clock reads of its own so a
// diff is reproducible from identical inputs.
func Layouts(base, modified *layout.Layout, timestamp string) *Document {
	doc := &Document{
		DiffType:        DiffType,
		BaseVersion:     base.Version,
		ModifiedVersion: modified.Version,
		BaseUUID:        base.UUID,
		ModifiedUUID:    modified.UUID,
		Timestamp:       timestamp,
		Layers:          layersDiff(base, modified),
		HoldTaps:        diffBehaviors(base.HoldTaps, modified.HoldTaps, func(h layout.HoldTap) string { return h.Name }),
		Combos:          diffBehaviors(base.Combos, modified.Combos, func(c layout.Combo) string { return c.Name }),
		Macros:          diffBehaviors(base.Macros, modified.Macros, func(m layout.Macro) string { return m.Name }),
		InputListeners:  diffBehaviors(base.InputListeners, modified.InputListeners, func(i layout.InputListener) string { return i.Code }),
		Metadata:        metadataDiff(base, modified),
	}
	return doc
}

func layersDiff(base, modified *layout.Layout) LayersDiff {
	out := LayersDiff{Modified: make(map[string]LayerModified)}

	baseIdx := make(map[string]int, len(base.LayerNames))
	for i, n := range base.LayerNames {
		baseIdx[n] = i
	}
	modIdx := make(map[string]int, len(modified.LayerNames))
	for i, n := range modified.LayerNames {
		modIdx[n] = i
	}

	for i, name := range modified.LayerNames {
		if _, ok := baseIdx[name]; !ok {
			out.Added = append(out.Added, LayerAdded{Name: name, NewPosition: i, Bindings: modified.Layers[i]})
		}
	}
	for i, name := range base.LayerNames {
		if _, ok := modIdx[name]; !ok {
			out.Removed = append(out.Removed, LayerRemoved{Name: name, OriginalPosition: i, Bindings: base.Layers[i]})
		}
	}
	for name, bi := range baseIdx {
		mi, ok := modIdx[name]
		if !ok {
			continue
		}
		baseRow := base.Layers[bi]
		modRow := modified.Layers[mi]
		if bi == mi && rowsEqual(baseRow, modRow) {
			continue
		}
		out.Modified[name] = LayerModified{
			OriginalPosition: bi,
			NewPosition:      mi,
			PositionChanged:  bi != mi,
			Patch:            diffRow(baseRow, modRow),
		}
	}

	sort.Slice(out.Added, func(i, j int) bool { return out.Added[i].NewPosition < out.Added[j].NewPosition })
	sort.Slice(out.Removed, func(i, j int) bool { return out.Removed[i].OriginalPosition < out.Removed[j].OriginalPosition })
	return out
}

func rowsEqual(a, b []layout.Binding) bool {
	return reflect.DeepEqual(a, b)
}

// diffRow produces the JSON-Patch row diff spec.md §4.12 step 3
// describes: replace for mismatched positions in the common prefix,
// then add (modified longer) or remove (base longer) for the tail,
// with canonical decimal-index paths.
func diffRow(base, modified []layout.Binding) []PatchOp {
	var ops []PatchOp
	common := len(base)
	if len(modified) < common {
		common = len(modified)
	}
	for i := 0; i < common; i++ {
		if !reflect.DeepEqual(base[i], modified[i]) {
			ops = append(ops, PatchOp{Op: "replace", Path: strconv.Itoa(i), Value: modified[i]})
		}
	}
	for i := common; i < len(modified); i++ {
		ops = append(ops, PatchOp{Op: "add", Path: strconv.Itoa(i), Value: modified[i]})
	}
	for i := len(base) - 1; i >= common; i-- {
		ops = append(ops, PatchOp{Op: "remove", Path: strconv.Itoa(i)})
	}
	return ops
}

// diffBehaviors is the generic form of spec.md §4.12 step 5: key both
// lists by an identity function, set-difference for added/removed, and
// recursively JSON-Patch diff the serialized record for names in both.
func diffBehaviors[T any](base, modified []T, identity func(T) string) BehaviorsDiff {
	out := BehaviorsDiff{Modified: make(map[string]BehaviorModified)}

	baseByName := make(map[string]T, len(base))
	for _, b := range base {
		baseByName[identity(b)] = b
	}
	modByName := make(map[string]T, len(modified))
	for _, m := range modified {
		modByName[identity(m)] = m
	}

	var addedNames, removedNames, commonNames []string
	for name := range modByName {
		if _, ok := baseByName[name]; !ok {
			addedNames = append(addedNames, name)
		} else {
			commonNames = append(commonNames, name)
		}
	}
	for name := range baseByName {
		if _, ok := modByName[name]; !ok {
			removedNames = append(removedNames, name)
		}
	}
	sort.Strings(addedNames)
	sort.Strings(removedNames)
	sort.Strings(commonNames)

	for _, name := range addedNames {
		out.Added = append(out.Added, BehaviorAdded{Name: name, Record: toGeneric(modByName[name])})
	}
	for _, name := range removedNames {
		out.Removed = append(out.Removed, BehaviorRemoved{Name: name, Record: toGeneric(baseByName[name])})
	}
	for _, name := range commonNames {
		ops := diffJSON(toGeneric(baseByName[name]), toGeneric(modByName[name]), "")
		if len(ops) > 0 {
			out.Modified[name] = BehaviorModified{Patch: ops}
		}
	}
	return out
}

func metadataDiff(base, modified *layout.Layout) map[string][]PatchOp {
	baseFields := map[string]any{
		"title": base.Title, "creator": base.Creator, "notes": base.Notes,
		"tags": base.Tags, "locale": base.Locale, "uuid": base.UUID,
		"parent_uuid": base.ParentUUID, "date": base.Date, "version": base.Version,
		"base_version": base.BaseVersion, "base_layout": base.BaseLayout,
		"custom_defined_behaviors": base.CustomDefinedBehaviors, "custom_devicetree": base.CustomDevicetree,
	}
	modFields := map[string]any{
		"title": modified.Title, "creator": modified.Creator, "notes": modified.Notes,
		"tags": modified.Tags, "locale": modified.Locale, "uuid": modified.UUID,
		"parent_uuid": modified.ParentUUID, "date": modified.Date, "version": modified.Version,
		"base_version": modified.BaseVersion, "base_layout": modified.BaseLayout,
		"custom_defined_behaviors": modified.CustomDefinedBehaviors, "custom_devicetree": modified.CustomDevicetree,
	}

	out := make(map[string][]PatchOp)
	for _, field := range metadataScalarFields {
		b, m := toGeneric(baseFields[field]), toGeneric(modFields[field])
		if !reflect.DeepEqual(b, m) {
			out[field] = []PatchOp{{Op: "replace", Path: "", Value: modFields[field]}}
		}
	}
	return out
}

// toGeneric round-trips v through JSON so struct fields compare and
// diff the same way regardless of concrete Go type — the same
// technique pkg/template uses on the other side of the pipeline.
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

// diffJSON recursively diffs two generic JSON values (as produced by
// toGeneric) into a JSON-Patch operation list, with lexicographically
// sorted paths at each level (spec.md §4.12's determinism rule).
func diffJSON(base, modified any, path string) []PatchOp {
	bm, bIsMap := base.(map[string]any)
	mm, mIsMap := modified.(map[string]any)
	if bIsMap && mIsMap {
		return diffJSONObject(bm, mm, path)
	}

	ba, bIsArr := base.([]any)
	ma, mIsArr := modified.([]any)
	if bIsArr && mIsArr {
		return diffJSONArray(ba, ma, path)
	}

	if reflect.DeepEqual(base, modified) {
		return nil
	}
	return []PatchOp{{Op: "replace", Path: path, Value: modified}}
}

func diffJSONObject(base, modified map[string]any, path string) []PatchOp {
	var ops []PatchOp
	var keys []string
	seen := make(map[string]bool)
	for k := range base {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range modified {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := path + "/" + escapePathSegment(k)
		bv, bok := base[k]
		mv, mok := modified[k]
		switch {
		case bok && !mok:
			ops = append(ops, PatchOp{Op: "remove", Path: childPath})
		case !bok && mok:
			ops = append(ops, PatchOp{Op: "add", Path: childPath, Value: mv})
		default:
			ops = append(ops, diffJSON(bv, mv, childPath)...)
		}
	}
	return ops
}

func diffJSONArray(base, modified []any, path string) []PatchOp {
	var ops []PatchOp
	common := len(base)
	if len(modified) < common {
		common = len(modified)
	}
	for i := 0; i < common; i++ {
		ops = append(ops, diffJSON(base[i], modified[i], path+"/"+strconv.Itoa(i))...)
	}
	for i := common; i < len(modified); i++ {
		ops = append(ops, PatchOp{Op: "add", Path: path + "/" + strconv.Itoa(i), Value: modified[i]})
	}
	for i := len(base) - 1; i >= common; i-- {
		ops = append(ops, PatchOp{Op: "remove", Path: path + "/" + strconv.Itoa(i)})
	}
	return ops
}

func escapePathSegment(s string) string {
	// RFC 6901 escaping: '~' -> '~0' before '/' -> '~1' to avoid
	// double-escaping a literal '~1' produced by the first pass.
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '~':
			out = append(out, '~', '0')
		case '/':
			out = append(out, '~', '1')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
