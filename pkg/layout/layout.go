// Package layout implements the Layout record (spec.md §3.2), its
// behavior archetypes (§3.3), round-trip metadata (§3.4), and the
// canonical JSON wire format (§6.1 — see json.go for the Marshal/
// Unmarshal pair and wireLayout).
package layout

import (
	"github.com/google/uuid"
)

// ConfigParameter is one entry of the wire-format config_parameters list.
type ConfigParameter struct {
	ParamName   string `json:"paramName"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
}

// Layout is the in-memory record a Devicetree import (or a JSON decode)
// produces (spec.md §3.2). Variables are resolved lazily: an unresolved
// and a resolved Layout are behaviorally equivalent except for output
// (see pkg/template). The fields carry no JSON tags: MarshalJSON and
// UnmarshalJSON in json.go own the wire shape via wireLayout.
type Layout struct {
	Variables map[string]any

	Keyboard string
	Title    string

	FirmwareAPIVersion string
	Locale             string
	UUID               string
	ParentUUID         string
	Date               *int64 // epoch seconds
	Creator            string
	Notes              string
	Tags               []string
	ConfigParameters   []ConfigParameter
	Version            string
	BaseVersion        string
	BaseLayout         string

	LayerNames []string
	Layers     [][]Binding

	HoldTaps       []HoldTap
	Combos         []Combo
	Macros         []Macro
	InputListeners []InputListener

	CustomDefinedBehaviors string
	CustomDevicetree       string

	KeymapMetadata *KeymapMetadata
}

// New constructs a Layout with a fresh UUID and the two mandatory fields
// set, matching the teacher's habit of giving every identity-bearing
// record a constructor rather than relying on zero values.
func New(keyboard, title string) *Layout {
	return &Layout{
		Keyboard:           keyboard,
		Title:              title,
		FirmwareAPIVersion: "1",
		Locale:             "en-US",
		UUID:               uuid.NewString(),
		Variables:          make(map[string]any),
	}
}

// LayerIndex returns the position of name in LayerNames, or -1.
func (l *Layout) LayerIndex(name string) int {
	for i, n := range l.LayerNames {
		if n == name {
			return i
		}
	}
	return -1
}

// HoldTapByName returns the hold-tap with the given name, or nil.
func (l *Layout) HoldTapByName(name string) *HoldTap {
	for i := range l.HoldTaps {
		if l.HoldTaps[i].Name == name {
			return &l.HoldTaps[i]
		}
	}
	return nil
}

// ComboByName returns the combo with the given name, or nil.
func (l *Layout) ComboByName(name string) *Combo {
	for i := range l.Combos {
		if l.Combos[i].Name == name {
			return &l.Combos[i]
		}
	}
	return nil
}

// MacroByName returns the macro with the given name, or nil.
func (l *Layout) MacroByName(name string) *Macro {
	for i := range l.Macros {
		if l.Macros[i].Name == name {
			return &l.Macros[i]
		}
	}
	return nil
}

// InputListenerByCode returns the input listener with the given code, or
// nil.
func (l *Layout) InputListenerByCode(code string) *InputListener {
	for i := range l.InputListeners {
		if l.InputListeners[i].Code == code {
			return &l.InputListeners[i]
		}
	}
	return nil
}
