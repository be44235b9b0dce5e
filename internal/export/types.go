// Package export writes scan results as JSON, YAML or TOML documents,
// optionally zstd-compressed, and renders a directory-level text summary.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fortdeps/internal/modules"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// CompressedSuffix marks a zstd-compressed document.
const CompressedSuffix = ".zst"

// Document is the exported form of one scan.
type Document struct {
	Metadata Metadata            `json:"metadata" yaml:"metadata" toml:"metadata"`
	Result   *modules.ScanResult `json:"result" yaml:"result" toml:"result"`
}

// Metadata describes where and when a document was produced.
type Metadata struct {
	Tool        string    `json:"tool" yaml:"tool" toml:"tool"`
	Version     string    `json:"version" yaml:"version" toml:"version"`
	Generated   time.Time `json:"generated" yaml:"generated" toml:"generated"`
	Root        string    `json:"root" yaml:"root" toml:"root"`
	FileCount   int       `json:"fileCount" yaml:"fileCount" toml:"fileCount"`
	ModuleCount int       `json:"moduleCount" yaml:"moduleCount" toml:"moduleCount"`
	EdgeCount   int       `json:"edgeCount" yaml:"edgeCount" toml:"edgeCount"`
	FailedCount int       `json:"failedCount" yaml:"failedCount" toml:"failedCount"`
}

// Options configures WriteFile.
type Options struct {
	// Format overrides the format inferred from the file name.
	Format Format

	// Compress forces zstd compression even without a .zst suffix.
	Compress bool
}

// ParseFormat accepts json, yaml, yml and toml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want json, yaml or toml)", s)
}

// FormatForPath infers the format and compression from a file name such
// as "deps.yaml.zst". Unknown extensions default to JSON.
func FormatForPath(path string) (Format, bool) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, CompressedSuffix)
	name = strings.TrimSuffix(name, CompressedSuffix)
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(name), ".")); err == nil {
		return f, compressed
	}
	return FormatJSON, compressed
}
