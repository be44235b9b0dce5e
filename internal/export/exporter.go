package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"fortdeps/internal/modules"
	"fortdeps/internal/slogutil"
	"fortdeps/internal/version"
)

// Exporter turns scan results into documents
type Exporter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Exporter{logger: logger, now: time.Now}
}

// Build wraps result with metadata.
func (e *Exporter) Build(result *modules.ScanResult) *Document {
	doc := &Document{
		Metadata: Metadata{
			Tool:      "fortdeps",
			Version:   version.Version,
			Generated: e.now().UTC().Truncate(time.Second),
		},
		Result: result,
	}
	if result != nil {
		doc.Metadata.Root = result.Root
		doc.Metadata.FileCount = len(result.Files)
		doc.Metadata.ModuleCount = len(result.Modules)
		doc.Metadata.EdgeCount = len(result.Edges)
		doc.Metadata.FailedCount = len(result.Failed)
	}
	return doc
}

// Encode writes doc to w in format.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Decode reads a document written by Encode.
func Decode(r io.Reader, format Format) (*Document, error) {
	doc := &Document{}
	var err error
	switch format {
	case FormatJSON, "":
		err = json.NewDecoder(r).Decode(doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(doc)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(doc)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// WriteFile writes doc to path. Format and compression are inferred from
// the file name unless opts overrides them.
func (e *Exporter) WriteFile(path string, doc *Document, opts Options) (err error) {
	format, compressed := FormatForPath(path)
	if opts.Format != "" {
		format = opts.Format
	}
	compressed = compressed || opts.Compress

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if compressed {
		zw, err = zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return err
		}
		w = zw
	}

	if err := Encode(w, doc, format); err != nil {
		if zw != nil {
			_ = zw.Close()
		}
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	e.logger.Info("Export written",
		"path", path,
		"format", string(format),
		"compressed", compressed,
		"files", doc.Metadata.FileCount)
	return nil
}

// ReadFile reads a document written by WriteFile.
func ReadFile(path string) (*Document, error) {
	format, compressed := FormatForPath(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	return Decode(r, format)
}
