package layout

// AllowedHoldTapFlavors are the recognized hold-tap flavor values
// (spec.md §3.3). An out-of-set value is preserved on the record, not
// rejected — only a warning is produced (see pkg/behavior).
var AllowedHoldTapFlavors = map[string]bool{
	"tap-preferred":          true,
	"hold-preferred":         true,
	"balanced":               true,
	"tap-unless-interrupted": true,
}

// HoldTap is the hold-tap behavior archetype (spec.md §3.3). Identity:
// Name.
type HoldTap struct {
	Name                    string   `json:"name"`
	Description             string   `json:"description,omitempty"`
	Bindings                []string `json:"bindings"`
	TappingTermMs           *int64   `json:"tappingTermMs,omitempty"`
	QuickTapMs              *int64   `json:"quickTapMs,omitempty"`
	RequirePriorIdleMs      *int64   `json:"requirePriorIdleMs,omitempty"`
	Flavor                  string   `json:"flavor,omitempty"`
	HoldTriggerOnRelease    bool     `json:"holdTriggerOnRelease,omitempty"`
	RetroTap                bool     `json:"retroTap,omitempty"`
	HoldTriggerKeyPositions []int64  `json:"holdTriggerKeyPositions,omitempty"`
}

// Combo is the combo behavior archetype. Identity: Name.
type Combo struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	KeyPositions []int64 `json:"keyPositions"`
	Binding      Binding `json:"binding"`
	TimeoutMs    *int64  `json:"timeoutMs,omitempty"`
	Layers       []int64 `json:"layers,omitempty"`
}

// Macro is the macro behavior archetype. Identity: Name. Params is nil
// when parameter-count resolution failed outright (spec.md §4.6 step 3),
// distinct from an explicit empty slice (zero-param macro).
type Macro struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Bindings    []Binding `json:"bindings"`
	WaitMs   *int64    `json:"waitMs,omitempty"`
	TapMs    *int64    `json:"tapMs,omitempty"`
	Params   []string  `json:"params"`
}

// InputListener is the input-listener archetype. Identity: Code.
type InputListener struct {
	Code            string           `json:"code"`
	InputProcessors []string         `json:"inputProcessors,omitempty"`
	Nodes           []InputListenerNode `json:"nodes,omitempty"`
}

// InputListenerNode captures one child node of an input-listener (layer
// conditions, input processors scoped to a sub-region, etc.) without
// committing to a fixed schema, since spec.md leaves its internal shape
// open ("input processors, nodes").
type InputListenerNode struct {
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}
