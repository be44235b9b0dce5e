package modules

// ImportEdgeKind represents the classification of a USE dependency
type ImportEdgeKind string

const (
	// LocalModule is a module defined by another scanned file
	LocalModule ImportEdgeKind = "local"

	// SelfReference is a module defined by the using file itself
	SelfReference ImportEdgeKind = "self"

	// Intrinsic is a module supplied by the compiler or runtime (iso_c_binding, omp_lib, ...)
	Intrinsic ImportEdgeKind = "intrinsic"

	// External is a module declared as provided outside the tree (e.g. a library's .mod files)
	External ImportEdgeKind = "external"

	// Unknown is a module nothing resolves, or a USE without a readable name
	Unknown ImportEdgeKind = "unknown"
)

// ImportEdge is one USE statement: a file depending on a module.
type ImportEdge struct {
	// From is the root-relative path of the using file
	From string `json:"from" yaml:"from" toml:"from"`

	// To is the case-folded module name
	To string `json:"to" yaml:"to" toml:"to"`

	// RawImport is the module name as written
	RawImport string `json:"rawImport" yaml:"rawImport" toml:"rawImport"`

	// Kind is the classification of this edge
	Kind ImportEdgeKind `json:"kind" yaml:"kind" toml:"kind"`

	// Provider is the file defining the module for local and self edges
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty" toml:"provider,omitempty"`

	// Confidence is between 0 and 1
	Confidence float64 `json:"confidence" yaml:"confidence" toml:"confidence"`

	// Line is the line of the USE statement
	Line int `json:"line,omitempty" yaml:"line,omitempty" toml:"line,omitempty"`
}

// IsLocal reports whether the edge resolves to a scanned file.
func (e *ImportEdge) IsLocal() bool {
	return e.Kind == LocalModule || e.Kind == SelfReference
}

// IsResolved reports whether anything accounts for the module.
func (e *ImportEdge) IsResolved() bool {
	return e.Kind != Unknown
}
