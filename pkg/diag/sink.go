package diag

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Severity classifies how serious a diagnostic is. Re-derived from the
// teacher's pkg/types Severity enum, trimmed to the three levels this
// domain actually produces (no SevCritical — nothing here is "can't open
// the file" bad; that would be a returned error, not a diagnostic).
type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic is a single warning or informational note produced by a
// component. Every warning-class condition in spec.md §7 is surfaced as a
// Diagnostic rather than a returned error.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Pos      Pos    // zero value if not applicable
	Path     string // source file identifier, if known
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(d.Severity.String())
	b.WriteByte('/')
	b.WriteString(d.Kind.String())
	b.WriteByte(']')
	if !d.Pos.IsZero() {
		b.WriteByte(' ')
		b.WriteString(d.Pos.String())
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}

// Sink is the diagnostics collaborator external to the core (§1.c of
// spec.md): any component that produces warnings hands them here instead
// of returning or panicking. Implementations must be safe to call
// repeatedly within a single invocation; they need not be goroutine-safe
// since the core is single-threaded per invocation (§5).
type Sink interface {
	Emit(Diagnostic)
}

// NopSink discards every diagnostic. Useful when a caller genuinely does
// not want diagnostics (e.g. benchmarks).
type NopSink struct{}

func (NopSink) Emit(Diagnostic) {}

// Collector is a ready-made in-memory Sink, used by tests and as the
// orchestrator's default when the caller supplies none. Mirrors the
// severity/kind bucketing of the teacher's DiagnosticReport.
type Collector struct {
	Diagnostics []Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// BySeverity groups collected diagnostics by severity.
func (c *Collector) BySeverity() map[Severity][]Diagnostic {
	out := make(map[Severity][]Diagnostic)
	for _, d := range c.Diagnostics {
		out[d.Severity] = append(out[d.Severity], d)
	}
	return out
}

// ByKind groups collected diagnostics by kind.
func (c *Collector) ByKind() map[Kind][]Diagnostic {
	out := make(map[Kind][]Diagnostic)
	for _, d := range c.Diagnostics {
		out[d.Kind] = append(out[d.Kind], d)
	}
	return out
}

// HasErrors reports whether any SevError diagnostic was collected.
func (c *Collector) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.Severity == SevError {
			return true
		}
	}
	return false
}

// sortedByPos returns a copy of the collected diagnostics ordered by
// source position, matching spec.md §5's "diagnostics emitted via the
// sink are ordered by the source position of the producing event".
func (c *Collector) sortedByPos() []Diagnostic {
	out := make([]Diagnostic, len(c.Diagnostics))
	copy(out, c.Diagnostics)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pos.Offset < out[j].Pos.Offset
	})
	return out
}

// FormatText renders a human-readable report, one diagnostic per line.
func (c *Collector) FormatText() string {
	var b strings.Builder
	for _, d := range c.sortedByPos() {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	if len(c.Diagnostics) == 0 {
		b.WriteString("no diagnostics\n")
	}
	return b.String()
}

type jsonDiagnostic struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Path     string `json:"path,omitempty"`
}

// FormatJSON renders the collected diagnostics as a JSON array, mirroring
// the in-memory diagnostics one-to-one per spec.md §7.
func (c *Collector) FormatJSON() ([]byte, error) {
	out := make([]jsonDiagnostic, 0, len(c.Diagnostics))
	for _, d := range c.sortedByPos() {
		out = append(out, jsonDiagnostic{
			Severity: d.Severity.String(),
			Kind:     d.Kind.String(),
			Message:  d.Message,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Path:     d.Path,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
