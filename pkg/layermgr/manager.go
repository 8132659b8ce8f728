// Package layermgr implements the Layer Manager (spec.md §4.14, C14):
// in-place add/remove/move/list/export operations on a Layout's layer
// sequence.
package layermgr

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zmk-layout/layoutkit/pkg/layout"
	"github.com/zmk-layout/layoutkit/pkg/profile"
)

// NoOpBinding is the keyboard-specific "does nothing" binding ZMK
// layouts use to pad a freshly added layer out to the profile's key
// count — "&trans" (transparent: falls through to the layer below).
var NoOpBinding = layout.Binding{Value: "&trans"}

var (
	// ErrMutuallyExclusive reports copy_from and import_from both set.
	ErrMutuallyExclusive = errors.New("layermgr: copy_from and import_from are mutually exclusive")
	// ErrImportLayerRequiresSource reports import_layer set without import_from.
	ErrImportLayerRequiresSource = errors.New("layermgr: import_layer requires import_from")
	// ErrDuplicateName reports an add() whose name already exists.
	ErrDuplicateName = errors.New("layermgr: layer name already exists")
	// ErrCopySourceNotFound reports a copy_from/import_layer name absent from its source.
	ErrCopySourceNotFound = errors.New("layermgr: copy source layer not found")
	// ErrLayerNotFound reports a move() target absent from the layout.
	ErrLayerNotFound = errors.New("layermgr: layer not found")
)

// AddOptions configures add() (spec.md §4.14). CopyFrom and ImportFrom
// are mutually exclusive; ImportLayer requires ImportFrom.
type AddOptions struct {
	Position   *int
	CopyFrom   string
	ImportFrom *layout.Layout
	ImportLayer string
}

// Manager wraps a *layout.Layout with the in-place layer operations
// spec.md §4.14 names, sized against prof's key count (profile.Default
// — key count 80 — when prof is nil).
type Manager struct {
	l    *layout.Layout
	prof profile.Provider
}

// New wraps l for in-place layer mutation.
func New(l *layout.Layout, prof profile.Provider) *Manager {
	if prof == nil {
		prof = profile.Default{}
	}
	return &Manager{l: l, prof: prof}
}

// Add inserts a new layer named name (spec.md §4.14). With neither
// CopyFrom nor ImportFrom set, the new layer is filled with NoOpBinding
// up to the profile's key count (fallback 80). Position defaults to
// appending at the end.
func (m *Manager) Add(name string, opts AddOptions) error {
	if m.l.LayerIndex(name) >= 0 {
		return ErrDuplicateName
	}
	if opts.CopyFrom != "" && opts.ImportFrom != nil {
		return ErrMutuallyExclusive
	}
	if opts.ImportLayer != "" && opts.ImportFrom == nil {
		return ErrImportLayerRequiresSource
	}

	bindings, err := m.resolveNewBindings(opts)
	if err != nil {
		return err
	}

	pos := len(m.l.LayerNames)
	if opts.Position != nil {
		pos = *opts.Position
		if pos < 0 {
			pos = 0
		}
		if pos > len(m.l.LayerNames) {
			pos = len(m.l.LayerNames)
		}
	}

	m.l.LayerNames = append(m.l.LayerNames, "")
	copy(m.l.LayerNames[pos+1:], m.l.LayerNames[pos:])
	m.l.LayerNames[pos] = name

	m.l.Layers = append(m.l.Layers, nil)
	copy(m.l.Layers[pos+1:], m.l.Layers[pos:])
	m.l.Layers[pos] = bindings

	return nil
}

// cloneRow deep-copies a binding row so a copy_from/import_from layer
// never aliases the source layer's Params trees: mutating one layer's
// bindings after an Add must never reach through into the other.
func cloneRow(row []layout.Binding) []layout.Binding {
	out := make([]layout.Binding, len(row))
	for i, b := range row {
		out[i] = cloneBinding(b)
	}
	return out
}

func cloneBinding(b layout.Binding) layout.Binding {
	return layout.Binding{Value: b.Value, Params: cloneParams(b.Params)}
}

func cloneParams(params []layout.LayoutParam) []layout.LayoutParam {
	if params == nil {
		return nil
	}
	out := make([]layout.LayoutParam, len(params))
	for i, p := range params {
		out[i] = layout.LayoutParam{Value: p.Value, Params: cloneParams(p.Params)}
	}
	return out
}

func (m *Manager) resolveNewBindings(opts AddOptions) ([]layout.Binding, error) {
	switch {
	case opts.CopyFrom != "":
		idx := m.l.LayerIndex(opts.CopyFrom)
		if idx < 0 {
			return nil, ErrCopySourceNotFound
		}
		return cloneRow(m.l.Layers[idx]), nil

	case opts.ImportFrom != nil:
		sourceName := opts.ImportLayer
		if sourceName == "" {
			return nil, nil
		}
		idx := opts.ImportFrom.LayerIndex(sourceName)
		if idx < 0 {
			return nil, ErrCopySourceNotFound
		}
		return cloneRow(opts.ImportFrom.Layers[idx]), nil

	default:
		count := m.prof.KeyCount()
		if count <= 0 {
			count = profile.DefaultKeyCount
		}
		bindings := make([]layout.Binding, count)
		for i := range bindings {
			bindings[i] = NoOpBinding
		}
		return bindings, nil
	}
}

// RemoveReport summarizes a Remove call (spec.md §4.14).
type RemoveReport struct {
	RemovedCount  int
	RemovedLayers []RemovedLayer
	Warnings      []string
	HadMatches    bool
}

// RemovedLayer names one layer removed by a Remove call.
type RemovedLayer struct {
	Name     string
	Position int
}

// Remove resolves identifier against the layer sequence in order: a
// non-negative decimal index, an exact name, a wildcard ('*' present
// without other regex metacharacters, translated to ".*"), then a
// regular expression (spec.md §4.14). Matches are removed in
// descending-position order so earlier indices stay valid mid-removal.
func (m *Manager) Remove(identifier string) RemoveReport {
	positions := m.resolveIdentifier(identifier)
	report := RemoveReport{HadMatches: len(positions) > 0}
	if len(positions) == 0 {
		report.Warnings = append(report.Warnings, "no layer matched "+strconv.Quote(identifier))
		return report
	}

	sort.Sort(sort.Reverse(sort.IntSlice(positions)))
	for _, pos := range positions {
		report.RemovedLayers = append(report.RemovedLayers, RemovedLayer{Name: m.l.LayerNames[pos], Position: pos})
		m.l.LayerNames = append(m.l.LayerNames[:pos], m.l.LayerNames[pos+1:]...)
		m.l.Layers = append(m.l.Layers[:pos], m.l.Layers[pos+1:]...)
		report.RemovedCount++
	}
	return report
}

func (m *Manager) resolveIdentifier(identifier string) []int {
	if idx, err := strconv.Atoi(identifier); err == nil && idx >= 0 {
		if idx < len(m.l.LayerNames) {
			return []int{idx}
		}
		return nil
	}

	if idx := m.l.LayerIndex(identifier); idx >= 0 {
		return []int{idx}
	}

	if strings.Contains(identifier, "*") && !containsOtherRegexMeta(identifier) {
		identifier = strings.ReplaceAll(identifier, "*", ".*")
	}

	re, err := regexp.Compile("^(?:" + identifier + ")$")
	if err != nil {
		return nil
	}
	var matches []int
	for i, name := range m.l.LayerNames {
		if re.MatchString(name) {
			matches = append(matches, i)
		}
	}
	return matches
}

var otherRegexMetaRe = regexp.MustCompile(`[.+?^$()\[\]{}|\\]`)

func containsOtherRegexMeta(s string) bool {
	return otherRegexMetaRe.MatchString(s)
}

// Move repositions the layer named name to newPosition (spec.md §4.14).
// A no-op when the source and destination indices coincide; otherwise a
// pop-then-insert so the layer's binding data travels with it.
func (m *Manager) Move(name string, newPosition int) error {
	cur := m.l.LayerIndex(name)
	if cur < 0 {
		return ErrLayerNotFound
	}
	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > len(m.l.LayerNames)-1 {
		newPosition = len(m.l.LayerNames) - 1
	}
	if cur == newPosition {
		return nil
	}

	n := m.l.LayerNames[cur]
	b := m.l.Layers[cur]
	m.l.LayerNames = append(m.l.LayerNames[:cur], m.l.LayerNames[cur+1:]...)
	m.l.Layers = append(m.l.Layers[:cur], m.l.Layers[cur+1:]...)

	m.l.LayerNames = append(m.l.LayerNames, "")
	copy(m.l.LayerNames[newPosition+1:], m.l.LayerNames[newPosition:])
	m.l.LayerNames[newPosition] = n

	m.l.Layers = append(m.l.Layers, nil)
	copy(m.l.Layers[newPosition+1:], m.l.Layers[newPosition:])
	m.l.Layers[newPosition] = b

	return nil
}

// LayerListing is one entry of List()'s result.
type LayerListing struct {
	Position int
	Name     string
}

// List returns every layer in sequence order with its position.
func (m *Manager) List() []LayerListing {
	out := make([]LayerListing, len(m.l.LayerNames))
	for i, name := range m.l.LayerNames {
		out[i] = LayerListing{Position: i, Name: name}
	}
	return out
}

// ExportFormat selects what Export returns (spec.md §4.14).
type ExportFormat string

const (
	// ExportBindings returns just the binding row.
	ExportBindings ExportFormat = "bindings"
	// ExportLayer returns {name, bindings}.
	ExportLayer ExportFormat = "layer"
	// ExportFull returns the whole owning Layout.
	ExportFull ExportFormat = "full"
)

// LayerExport is ExportLayer's result shape.
type LayerExport struct {
	Name     string
	Bindings []layout.Binding
}

// Export renders the layer named name in the requested format
// (spec.md §4.14). Returns ErrLayerNotFound if name doesn't exist, or
// an unrecognized-format error.
func (m *Manager) Export(name string, format ExportFormat) (any, error) {
	idx := m.l.LayerIndex(name)
	if idx < 0 {
		return nil, ErrLayerNotFound
	}
	switch format {
	case ExportBindings:
		return m.l.Layers[idx], nil
	case ExportLayer:
		return LayerExport{Name: name, Bindings: m.l.Layers[idx]}, nil
	case ExportFull:
		return m.l, nil
	default:
		return nil, errors.New("layermgr: unknown export format " + strconv.Quote(string(format)))
	}
}
