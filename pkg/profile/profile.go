// Package profile declares the keyboard-profile collaborator contract
// (spec.md §2's "deliberately out of scope" list): the core depends
// only on this interface, never on how profile data is loaded, parsed,
// or cached. A concrete implementation (reading a config file, calling
// a registry service, whatever) lives entirely outside this module.
package profile

import "github.com/zmk-layout/layoutkit/pkg/section"

// DefaultKeyCount is substituted when no profile is supplied at all
// (spec.md §4.14's layer manager fallback).
const DefaultKeyCount = 80

// Provider answers the three questions the core asks of a keyboard
// profile: how many keys it has, which hold-tap flavors it recognizes,
// and how to slice a template-format keymap file into sections.
type Provider interface {
	KeyCount() int
	AllowedHoldTapFlavors() []string
	ExtractionConfig() []section.ExtractionConfig
}

// Default is a zero-configuration Provider used when the caller has no
// profile at all: the generic key count fallback, no flavor
// restriction (validation is skipped, never rejected), and no
// extraction sections (template-aware import degrades to "nothing
// extracted, everything falls through to custom_devicetree").
type Default struct{}

func (Default) KeyCount() int                     { return DefaultKeyCount }
func (Default) AllowedHoldTapFlavors() []string    { return nil }
func (Default) ExtractionConfig() []section.ExtractionConfig { return nil }
