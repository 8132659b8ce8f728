package layout

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireLayout mirrous the external JSON shape (spec.md §6.1). Field
// declaration order is the canonical output order — Variables first, so
// downstream resolvers see them before anything that might reference
// them — matching the spec's explicit ordering requirement.
type wireLayout struct {
	Variables map[string]any `json:"variables"`

	Keyboard            string            `json:"keyboard"`
	Title               string            `json:"title"`
	FirmwareAPIVersion  string            `json:"firmware_api_version"`
	Locale              string            `json:"locale"`
	UUID                string            `json:"uuid,omitempty"`
	ParentUUID          string            `json:"parent_uuid,omitempty"`
	Date                *int64            `json:"date,omitempty"`
	Creator             string            `json:"creator,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	ConfigParameters    []ConfigParameter `json:"config_parameters,omitempty"`
	Version             string            `json:"version,omitempty"`
	BaseVersion         string            `json:"base_version,omitempty"`
	BaseLayout          string            `json:"base_layout,omitempty"`
	LayerNames          []string          `json:"layer_names"`
	HoldTaps            []HoldTap         `json:"holdTaps,omitempty"`
	Combos              []Combo           `json:"combos,omitempty"`
	Macros              []Macro           `json:"macros,omitempty"`
	InputListeners      []InputListener   `json:"inputListeners,omitempty"`
	Layers              [][]Binding       `json:"layers"`
	CustomDefinedBehaviors string         `json:"custom_defined_behaviors,omitempty"`
	CustomDevicetree    string            `json:"custom_devicetree,omitempty"`
	KeymapMetadata      *KeymapMetadata   `json:"keymapMetadata,omitempty"`
}

// MarshalJSON emits the canonical wire format, with Date always as an
// integer epoch (spec.md §6.1: "Integer-epoch date serialization is
// mandatory on output").
func (l *Layout) MarshalJSON() ([]byte, error) {
	w := wireLayout{
		Variables:              l.Variables,
		Keyboard:               l.Keyboard,
		Title:                  l.Title,
		FirmwareAPIVersion:     l.FirmwareAPIVersion,
		Locale:                 l.Locale,
		UUID:                   l.UUID,
		ParentUUID:             l.ParentUUID,
		Date:                   l.Date,
		Creator:                l.Creator,
		Notes:                  l.Notes,
		Tags:                   l.Tags,
		ConfigParameters:       l.ConfigParameters,
		Version:                l.Version,
		BaseVersion:            l.BaseVersion,
		BaseLayout:             l.BaseLayout,
		LayerNames:             l.LayerNames,
		HoldTaps:               l.HoldTaps,
		Combos:                 l.Combos,
		Macros:                 l.Macros,
		InputListeners:         l.InputListeners,
		Layers:                 l.Layers,
		CustomDefinedBehaviors: l.CustomDefinedBehaviors,
		CustomDevicetree:       l.CustomDevicetree,
		KeymapMetadata:         l.KeymapMetadata,
	}
	if w.Variables == nil {
		w.Variables = map[string]any{}
	}
	if w.LayerNames == nil {
		w.LayerNames = []string{}
	}
	if w.Layers == nil {
		w.Layers = [][]Binding{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both integer-epoch and ISO-8601 string dates on
// input (spec.md §6.1: "on input, both integer epochs and ISO strings
// must be accepted").
func (l *Layout) UnmarshalJSON(data []byte) error {
	var raw struct {
		wireLayout
		Date json.RawMessage `json:"date,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w := raw.wireLayout

	*l = Layout{
		Keyboard:               w.Keyboard,
		Title:                  w.Title,
		FirmwareAPIVersion:     w.FirmwareAPIVersion,
		Locale:                 w.Locale,
		UUID:                   w.UUID,
		ParentUUID:             w.ParentUUID,
		Creator:                w.Creator,
		Notes:                  w.Notes,
		Tags:                   w.Tags,
		Variables:              w.Variables,
		ConfigParameters:       w.ConfigParameters,
		Version:                w.Version,
		BaseVersion:            w.BaseVersion,
		BaseLayout:             w.BaseLayout,
		LayerNames:             w.LayerNames,
		Layers:                 w.Layers,
		HoldTaps:               w.HoldTaps,
		Combos:                 w.Combos,
		Macros:                 w.Macros,
		InputListeners:         w.InputListeners,
		CustomDefinedBehaviors: w.CustomDefinedBehaviors,
		CustomDevicetree:       w.CustomDevicetree,
		KeymapMetadata:         w.KeymapMetadata,
	}
	if l.Variables == nil {
		l.Variables = make(map[string]any)
	}
	if len(raw.Date) > 0 && string(raw.Date) != "null" {
		epoch, err := parseFlexibleDate(raw.Date)
		if err != nil {
			return err
		}
		l.Date = &epoch
	}
	return nil
}

func parseFlexibleDate(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("layout: date must be an integer epoch or ISO-8601 string: %w", err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("layout: unparseable date %q: %w", s, err)
	}
	return t.Unix(), nil
}
