// Package dtlex is the Devicetree lexical scanner (spec.md §4.1, C1). It
// turns UTF-8 source bytes into a lazy sequence of positioned tokens,
// retaining comments and preprocessor lines verbatim rather than
// discarding them, so the metadata extractor (C7) can recover them later.
package dtlex

import "github.com/zmk-layout/layoutkit/pkg/diag"

// TokenType enumerates the lexical categories produced by the scanner.
type TokenType int

const (
	Identifier TokenType = iota
	String
	Number
	Reference // '&' followed by an identifier
	LBrace
	RBrace
	LBrack
	RBrack
	AngleOpen
	AngleClose
	Semicolon
	Colon
	Comma
	Equals
	At
	Slash
	LPar
	RPar
	Comment      // line `//...` or block `/*...*/`; Raw holds delimiters
	Preprocessor // '#...' to end of line; Raw holds the '#'
	Whitespace   // only emitted when Options.EmitWhitespace is set
	EOF
)

func (t TokenType) String() string {
	names := [...]string{
		"Identifier", "String", "Number", "Reference", "LBrace", "RBrace",
		"LBrack", "RBrack", "AngleOpen", "AngleClose", "Semicolon", "Colon",
		"Comma", "Equals", "At", "Slash", "LPar", "RPar", "Comment",
		"Preprocessor", "Whitespace", "EOF",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// Token is a single lexical unit with its exact source position and raw
// text. Raw always matches byte-for-byte what was consumed from the
// input — this is what makes tokenization total (P2): with
// Options.EmitWhitespace set, concatenating every Raw reproduces the
// original input exactly.
type Token struct {
	Type TokenType
	Raw  string
	Pos  diag.Pos
}
