// Package diag provides the typed error and diagnostics vocabulary shared
// across the import, conversion, and diff/patch pipelines.
//
// Nothing in this package raises across a component boundary for anything
// classified below as a warning-class Kind; callers construct a Diagnostic
// and hand it to a Sink instead. Only lexical errors are fatal to the parse
// that produced them (see Kind docs).
package diag

import "fmt"

// Kind classifies a diagnostic or error so callers can branch on intent
// rather than message text.
type Kind int

const (
	// KindLexical covers unterminated strings/comments and invalid number
	// literals. Fatal for the invocation that produced it.
	KindLexical Kind = iota
	// KindParse covers unexpected tokens and missing terminators.
	// Accumulated; the parser returns a partial AST alongside these.
	KindParse
	// KindConversion covers archetype-specific constraint violations (e.g.
	// a hold-tap without exactly two bindings). The offending behavior is
	// dropped; the pipeline continues.
	KindConversion
	// KindReference covers layer indices that fall outside the declared
	// layer_names range. Reported, never auto-corrected.
	KindReference
	// KindInclude covers unresolved #include paths.
	KindInclude
	// KindPatch covers JSON-Patch operations whose target path is absent
	// during apply. Silently skipped.
	KindPatch
	// KindTemplate covers unresolved ${var} references or malformed
	// {{ expr }} template expressions. The token is left verbatim.
	KindTemplate
)

// String renders the Kind the way it appears in diagnostic text output.
func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "lexical"
	case KindParse:
		return "parse"
	case KindConversion:
		return "conversion"
	case KindReference:
		return "reference"
	case KindInclude:
		return "include"
	case KindPatch:
		return "patch"
	case KindTemplate:
		return "template"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Pos is a source position: byte offset plus 1-based line/column.
type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.Line == 0 && p.Column == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsZero reports whether the position was never set.
func (p Pos) IsZero() bool { return p.Line == 0 && p.Column == 0 && p.Offset == 0 }

// Error is a typed error with an optional position and underlying cause.
// Mirrors the teacher's pkg/types.Error shape: stable category, human
// message, optional wrapped error.
type Error struct {
	Kind Kind
	Msg  string
	Pos  Pos
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := e.Kind.String()
	if !e.Pos.IsZero() {
		prefix += "@" + e.Pos.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is against the category sentinels below even after
// At/Wrap have produced a positioned copy: two *Error values are
// considered the same error category when their Kind and Msg match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

// NewError builds an *Error with no position, for cases (malformed hex
// literal mid-scan, etc.) where the caller will attach a position itself.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// At returns a copy of the error with the given position attached.
func (e *Error) At(pos Pos) *Error {
	cp := *e
	cp.Pos = pos
	return &cp
}

// Wrap returns a copy of the error wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Sentinel category errors, comparable with errors.Is, mirroring
// pkg/types.ErrNotHive et al. in the teacher.
var (
	ErrUnterminatedString  = NewError(KindLexical, "unterminated string literal")
	ErrUnterminatedComment = NewError(KindLexical, "unterminated block comment")
	ErrInvalidHexLiteral   = NewError(KindLexical, "invalid hexadecimal literal")
	ErrUnexpectedToken     = NewError(KindParse, "unexpected token")
	ErrMissingTerminator   = NewError(KindParse, "missing terminator")
)
