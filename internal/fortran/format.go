package fortran

import (
	"path/filepath"
	"strings"
)

// SourceFormat is the layout convention of a Fortran source file.
type SourceFormat int

const (
	// Fixed is the legacy column-oriented layout (continuation in column 6,
	// statement body in columns 7-72).
	Fixed SourceFormat = iota
	// Free is the modern layout using '&' for continuation.
	Free
)

func (f SourceFormat) String() string {
	if f == Free {
		return "free"
	}
	return "fixed"
}

// Line length limits.
const (
	FixedLineLimit = 72
	LongLineLimit  = 132
)

// Options controls how a source is read.
type Options struct {
	Format SourceFormat
	// LongLines raises the fixed-form limit to 132 columns (-e).
	LongLines bool
	// Preprocess is carried for callers; the reader does not act on it.
	Preprocess bool
	// KnownExtension is false when the file extension did not select a format.
	KnownExtension bool
}

// LineLimit returns the last significant column for the current format.
func (o Options) LineLimit() int {
	if o.Format == Free || o.LongLines {
		return LongLineLimit
	}
	return FixedLineLimit
}

// extension -> (format, preprocess). Matching is case sensitive: the capital
// variants mark sources that go through the preprocessor first.
var extensionFormats = map[string]struct {
	format     SourceFormat
	preprocess bool
}{
	".f":   {Fixed, false},
	".for": {Fixed, false},
	".F":   {Fixed, true},
	".f90": {Free, false},
	".f95": {Free, false},
	".F90": {Free, true},
	".F95": {Free, true},
}

// OptionsForPath derives the default options from the file extension.
// Unrecognized extensions leave the format at Fixed.
func OptionsForPath(path string) Options {
	ext := filepath.Ext(path)
	if f, ok := extensionFormats[ext]; ok {
		return Options{Format: f.format, Preprocess: f.preprocess, KnownExtension: true}
	}
	return Options{Format: Fixed}
}

// IsSourceExtension reports whether ext selects a source format.
func IsSourceExtension(ext string) bool {
	_, ok := extensionFormats[ext]
	return ok
}

// ParseOptions applies an option string such as "-free -e" on top of base.
// Unknown tokens are returned so callers can report them.
func ParseOptions(base Options, options string) (Options, []string) {
	var unknown []string
	for _, tok := range strings.Fields(options) {
		switch tok {
		case "-free":
			base.Format = Free
		case "-fixed":
			base.Format = Fixed
		case "-e":
			base.LongLines = true
		case "-fpp":
			base.Preprocess = true
		default:
			unknown = append(unknown, tok)
		}
	}
	return base, unknown
}

// ResolveOptions combines the extension defaults for path with an explicit
// option string.
func ResolveOptions(path, options string) (Options, []string) {
	return ParseOptions(OptionsForPath(path), options)
}
