package modules

import (
	"strings"

	"fortdeps/internal/fortran"
)

// ModuleRef is a module name mentioned by a source file.
type ModuleRef struct {
	// Name is the identifier as written in the source.
	Name string `json:"name" yaml:"name" toml:"name"`

	// Line is the physical line of the statement.
	Line int `json:"line" yaml:"line" toml:"line"`
}

// Key is the case-folded name used for resolution.
func (r ModuleRef) Key() string {
	return strings.ToLower(r.Name)
}

// SourceFile is the scan outcome for one Fortran file.
type SourceFile struct {
	// Path is root-relative with forward slashes.
	Path string `json:"path" yaml:"path" toml:"path"`

	// Format is the initial source form ("fixed" or "free").
	Format string `json:"format" yaml:"format" toml:"format"`

	Preprocess bool `json:"preprocess,omitempty" yaml:"preprocess,omitempty" toml:"preprocess,omitempty"`

	// Options is the effective options string passed to the reader.
	Options string `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`

	// Provides lists MODULE definitions in file order.
	Provides []ModuleRef `json:"provides" yaml:"provides" toml:"provides"`

	// Uses lists USE statements in file order, duplicates included.
	Uses []ModuleRef `json:"uses" yaml:"uses" toml:"uses"`

	// Checksum is the hex SHA-256 of the file contents.
	Checksum string `json:"checksum" yaml:"checksum" toml:"checksum"`

	// OK is false when the file ended mid-statement or vanished during the scan.
	OK bool `json:"ok" yaml:"ok" toml:"ok"`

	// Failure describes why OK is false.
	Failure string `json:"failure,omitempty" yaml:"failure,omitempty" toml:"failure,omitempty"`

	// Cached is true when the result came from the result cache.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty" toml:"cached,omitempty"`
}

// newSourceFile splits classified entries into provisions and uses.
func newSourceFile(path string, opts fortran.Options, options, checksum string, entries []fortran.Entry) *SourceFile {
	f := &SourceFile{
		Path:       path,
		Format:     opts.Format.String(),
		Preprocess: opts.Preprocess,
		Options:    options,
		Provides:   []ModuleRef{},
		Uses:       []ModuleRef{},
		Checksum:   checksum,
		OK:         true,
	}
	for _, e := range entries {
		ref := ModuleRef{Name: e.Name, Line: e.Line}
		switch e.Kind {
		case fortran.ModuleRef:
			f.Provides = append(f.Provides, ref)
		case fortran.UseRef:
			f.Uses = append(f.Uses, ref)
		}
	}
	return f
}

// Entries rebuilds the classified entries in file order.
func (f *SourceFile) Entries() []fortran.Entry {
	entries := make([]fortran.Entry, 0, len(f.Provides)+len(f.Uses))
	i, j := 0, 0
	for i < len(f.Provides) || j < len(f.Uses) {
		if j >= len(f.Uses) || (i < len(f.Provides) && f.Provides[i].Line <= f.Uses[j].Line) {
			entries = append(entries, fortran.Entry{Kind: fortran.ModuleRef, Name: f.Provides[i].Name, Line: f.Provides[i].Line})
			i++
			continue
		}
		entries = append(entries, fortran.Entry{Kind: fortran.UseRef, Name: f.Uses[j].Name, Line: f.Uses[j].Line})
		j++
	}
	return entries
}
