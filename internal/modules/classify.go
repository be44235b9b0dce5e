package modules

import (
	"strings"
)

// DefaultIntrinsicModules are supplied by the compiler or standard runtimes.
var DefaultIntrinsicModules = []string{
	"iso_c_binding",
	"iso_fortran_env",
	"ieee_arithmetic",
	"ieee_exceptions",
	"ieee_features",
	"omp_lib",
	"omp_lib_kinds",
	"openacc",
}

// ModuleContext provides context for import classification
type ModuleContext struct {
	// Providers maps a case-folded module name to the file defining it
	Providers map[string]string

	// Duplicates is the set of module names defined by more than one file
	Duplicates map[string]bool

	// Intrinsic is the set of compiler-supplied module names
	Intrinsic map[string]bool

	// External is the set of module names declared as coming from outside the tree
	External map[string]bool
}

// NewModuleContext builds a context. Intrinsic always includes
// DefaultIntrinsicModules; extra names are case-folded.
func NewModuleContext(providers map[string]string, duplicates map[string]bool, intrinsic, external []string) *ModuleContext {
	ctx := &ModuleContext{
		Providers:  providers,
		Duplicates: duplicates,
		Intrinsic:  make(map[string]bool, len(DefaultIntrinsicModules)+len(intrinsic)),
		External:   make(map[string]bool, len(external)),
	}
	for _, name := range DefaultIntrinsicModules {
		ctx.Intrinsic[name] = true
	}
	for _, name := range intrinsic {
		ctx.Intrinsic[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, name := range external {
		ctx.External[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return ctx
}

// ImportClassifier classifies import edges
type ImportClassifier struct {
	context *ModuleContext
}

// NewImportClassifier creates a new import classifier
func NewImportClassifier(ctx *ModuleContext) *ImportClassifier {
	return &ImportClassifier{context: ctx}
}

// ClassifyImport classifies a case-folded module name used by fromFile and
// returns the defining file for local and self references.
// A module defined in the tree shadows an intrinsic or external one.
func (c *ImportClassifier) ClassifyImport(module string, fromFile string) (ImportEdgeKind, string) {
	if module == "" {
		return Unknown, ""
	}
	if provider, ok := c.context.Providers[module]; ok {
		if provider == fromFile {
			return SelfReference, provider
		}
		return LocalModule, provider
	}
	if c.context.Intrinsic[module] {
		return Intrinsic, ""
	}
	if c.context.External[module] {
		return External, ""
	}
	return Unknown, ""
}

// ClassifyEdge classifies an import edge, setting its Kind, Provider and Confidence
func (c *ImportClassifier) ClassifyEdge(edge *ImportEdge) {
	edge.Kind, edge.Provider = c.ClassifyImport(edge.To, edge.From)

	switch edge.Kind {
	case SelfReference, Intrinsic:
		edge.Confidence = 1.0
	case LocalModule:
		edge.Confidence = 1.0
		if c.context.Duplicates[edge.To] {
			edge.Confidence = 0.6 // several files define it; the first one was picked
		}
	case External:
		edge.Confidence = 0.95
	case Unknown:
		edge.Confidence = 0.5
		if edge.To == "" {
			edge.Confidence = 0
		}
	}
}
