package layout

// CommentRecord captures one comment surfaced by metadata extraction
// (spec.md §3.4), with a contextual category derived from the enclosing
// node name ("behaviors", "keymap", "combos", or "general"). No "header"
// or per-property category is produced.
type CommentRecord struct {
	Text     string `json:"text"`
	Line     int    `json:"line"`
	Category string `json:"category"`
	IsBlock  bool   `json:"isBlock"`
}

// IncludeDescriptor records one #include line and its resolution
// outcome: either an absolute filesystem path, or a tagged sentinel of
// the form "[system] <name>" / "[local] <name>" when unresolved.
type IncludeDescriptor struct {
	Path       string `json:"path"`
	Line       int    `json:"line"`
	Resolution string `json:"resolution"`
	Angled     bool   `json:"angled"`
}

// DirectiveRecord is one preprocessor conditional/definition line.
type DirectiveRecord struct {
	Name      string `json:"name"`
	Condition string `json:"condition,omitempty"`
	Value     string `json:"value,omitempty"`
	Line      int    `json:"line"`
}

// DependencyGraph maps resolved includes to the logical roles they
// likely provide (spec.md §4.7's classification heuristic) and lists
// anything that couldn't be resolved.
type DependencyGraph struct {
	ResolvedIncludes []string          `json:"resolvedIncludes,omitempty"`
	Roles            map[string]string `json:"roles,omitempty"`
	Unresolved       []string          `json:"unresolved,omitempty"`
}

// Provenance records how a layout's metadata was produced.
type Provenance struct {
	ParsingMethod string `json:"parsingMethod,omitempty"`
	ParsingMode   string `json:"parsingMode,omitempty"`
	SourceFile    string `json:"sourceFile,omitempty"`
}

// KeymapMetadata is the structured round-trip-preservation record
// (spec.md §3.4): everything the AST surfaces that the typed Layout
// fields would otherwise discard.
type KeymapMetadata struct {
	Comments     []CommentRecord   `json:"comments,omitempty"`
	Includes     []IncludeDescriptor `json:"includes,omitempty"`
	Directives   []DirectiveRecord `json:"directives,omitempty"`
	Header       string            `json:"header,omitempty"`
	Footer       string            `json:"footer,omitempty"`
	Dependencies DependencyGraph   `json:"dependencies,omitempty"`
	Provenance   Provenance        `json:"provenance,omitempty"`
}
