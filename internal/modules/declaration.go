package modules

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DeclarationFile is the per-root declaration filename.
const DeclarationFile = "FORTRAN.toml"

// SourceRule assigns reader options to files matching Pattern.
type SourceRule struct {
	// Pattern is a slash-separated path.Match glob, tried against the
	// root-relative path and then the base name.
	Pattern string `toml:"pattern"`

	// Options is appended after the configured default options.
	Options string `toml:"options"`
}

// Declaration is the root structure of FORTRAN.toml.
type Declaration struct {
	Version int `toml:"version"`

	// Ignore lists directories or globs excluded from the walk.
	Ignore []string `toml:"ignore"`

	// Intrinsic adds compiler-supplied module names.
	Intrinsic []string `toml:"intrinsic"`

	// External lists modules provided outside the tree.
	External []string `toml:"external"`

	// Sources are matched in order; the first match wins.
	Sources []SourceRule `toml:"source"`
}

// ParseDeclarationFile parses and validates a FORTRAN.toml file.
// Unknown keys are rejected.
func ParseDeclarationFile(filePath string) (*Declaration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DeclarationFile, err)
	}

	var decl Declaration
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&decl); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to parse %s at %d:%d: %w", DeclarationFile, row, col, err)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", DeclarationFile, err)
	}

	if decl.Version < 1 {
		decl.Version = 1
	}
	if err := decl.Validate(); err != nil {
		return nil, err
	}
	return &decl, nil
}

// LoadDeclaration loads <root>/FORTRAN.toml. A missing file yields an empty
// declaration.
func LoadDeclaration(root string) (*Declaration, error) {
	filePath := filepath.Join(root, DeclarationFile)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return &Declaration{Version: 1}, nil
	}
	return ParseDeclarationFile(filePath)
}

// Validate checks the version and every glob.
func (d *Declaration) Validate() error {
	if d.Version != 1 {
		return fmt.Errorf("%s: unsupported version %d", DeclarationFile, d.Version)
	}
	for i, rule := range d.Sources {
		if rule.Pattern == "" {
			return fmt.Errorf("%s: source #%d has no pattern", DeclarationFile, i+1)
		}
		if _, err := path.Match(rule.Pattern, ""); err != nil {
			return fmt.Errorf("%s: source #%d pattern %q: %w", DeclarationFile, i+1, rule.Pattern, err)
		}
	}
	for _, ig := range d.Ignore {
		if strings.Trim(ig, "/") == "" {
			return fmt.Errorf("%s: empty ignore entry", DeclarationFile)
		}
		if _, err := path.Match(strings.TrimSuffix(ig, "/"), ""); err != nil {
			return fmt.Errorf("%s: ignore %q: %w", DeclarationFile, ig, err)
		}
	}
	return nil
}

// OptionsFor returns the options of the first rule matching rel.
func (d *Declaration) OptionsFor(rel string) (string, bool) {
	if d == nil {
		return "", false
	}
	base := path.Base(rel)
	for _, rule := range d.Sources {
		if globMatch(rule.Pattern, rel) || globMatch(rule.Pattern, base) {
			return rule.Options, true
		}
	}
	return "", false
}

// IsIgnored reports whether the root-relative path rel is excluded.
// "legacy/" excludes the legacy directory and everything below it.
func (d *Declaration) IsIgnored(rel string) bool {
	if d == nil {
		return false
	}
	base := path.Base(rel)
	for _, ig := range d.Ignore {
		entry := strings.TrimSuffix(ig, "/")
		if rel == entry || strings.HasPrefix(rel, entry+"/") {
			return true
		}
		if globMatch(entry, rel) || globMatch(entry, base) {
			return true
		}
	}
	return false
}

// EffectiveOptions joins the default options with any rule options for rel.
func (d *Declaration) EffectiveOptions(defaults, rel string) string {
	extra, _ := d.OptionsFor(rel)
	return strings.TrimSpace(strings.TrimSpace(defaults) + " " + strings.TrimSpace(extra))
}

func globMatch(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
