package fortran

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"fortdeps/internal/slogutil"
)

// Kind tags a classified statement.
type Kind byte

const (
	// ModuleRef marks a MODULE declaration.
	ModuleRef Kind = 'M'
	// UseRef marks a USE statement.
	UseRef Kind = 'U'
)

func (k Kind) String() string {
	switch k {
	case ModuleRef:
		return "module"
	case UseRef:
		return "use"
	}
	return "unknown"
}

// Entry is a MODULE or USE reference found in a source.
type Entry struct {
	Kind Kind
	// Name is the referenced identifier as written. It may be empty, e.g. for
	// "use, intrinsic :: iso_c_binding".
	Name string
	Line int
}

// String returns the kind letter followed by the name, e.g. "Mfoo".
func (e Entry) String() string {
	return string(rune(e.Kind)) + e.Name
}

const (
	prefixModuleProcedure = "moduleprocedure"
	prefixModule          = "module"
	prefixUse             = "use"
)

// ClassifyStatement reports whether s declares a module or uses one.
// "MODULE PROCEDURE" statements are not module declarations.
func ClassifyStatement(s Statement) (Entry, bool) {
	text := s.Text
	switch {
	case hasPrefixFold(text, prefixModuleProcedure):
		return Entry{}, false
	case hasPrefixFold(text, prefixModule):
		return Entry{Kind: ModuleRef, Name: identifier(text[len(prefixModule):]), Line: s.Line}, true
	case hasPrefixFold(text, prefixUse):
		return Entry{Kind: UseRef, Name: identifier(text[len(prefixUse):]), Line: s.Line}, true
	}
	return Entry{}, false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// identifier returns the leading Fortran name in s after leading blanks.
func identifier(s string) string {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && isNameChar(s[end]) {
		end++
	}
	return s[:end]
}

func isNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_'
}

// Classify reads every statement from r and returns the MODULE and USE
// entries in file order.
func Classify(r *Reader) ([]Entry, error) {
	entries := make([]Entry, 0, 8)
	for {
		stmt, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		if e, ok := ClassifyStatement(stmt); ok {
			entries = append(entries, e)
		}
	}
}

// ScanFile classifies the source at path for build tooling. It does not fail
// on bad input: ok is false, with a nil error, when the file cannot be opened
// or ends inside a statement, and no partial entries are returned. Other
// errors, including reader contract violations, are returned.
func ScanFile(path, options string, logger *slog.Logger) (entries []Entry, ok bool, err error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	r, err := Open(path, options, logger)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			logger.Debug("Cannot open Fortran source", "file", path, "error", err.Error())
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = r.Close() }()

	entries, err = Classify(r)
	if errors.Is(err, ErrUnexpectedEOF) {
		logger.Debug("Fortran parsing failed", "file", path, "error", err.Error())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}
