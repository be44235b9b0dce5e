package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"fortdeps/internal/errors"
	"fortdeps/internal/export"
)

var (
	exportOut      string
	exportDocument string
	exportCompress bool
	exportNoCache  bool
)

var exportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write the dependency scan of a tree to a file",
	Long: `Scan a tree and write the full result (files, edges, build order, cycles)
as a JSON, YAML or TOML document.

The document format is taken from the output file extension unless
--doc-format is given. A .zst suffix, or --compress, writes the document
zstd-compressed.

Examples:
  fortdeps export --out deps.json
  fortdeps export src/ --out deps.yaml.zst
  fortdeps export --out deps.out --doc-format=toml --compress`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (required)")
	exportCmd.Flags().StringVar(&exportDocument, "doc-format", "", "Document format (json, yaml, toml)")
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "zstd-compress the document")
	exportCmd.Flags().BoolVar(&exportNoCache, "no-cache", false, "Scan without the result cache")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	root, err := rootDir(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := export.Options{Compress: exportCompress}
	if exportDocument != "" {
		if opts.Format, err = export.ParseFormat(exportDocument); err != nil {
			return errors.New(errors.ConfigInvalid, "Invalid --doc-format", err)
		}
	}

	result, err := scanTree(s, !exportNoCache)
	if err != nil {
		return err
	}

	out, err := filepath.Abs(exportOut)
	if err != nil {
		return classify(err)
	}
	exporter := export.NewExporter(s.logger)
	doc := exporter.Build(result)
	if err := exporter.WriteFile(out, doc, opts); err != nil {
		return errors.New(errors.InternalError, "Failed to write export", err)
	}

	format := opts.Format
	if format == "" {
		format, _ = export.FormatForPath(out)
	}
	return writeOutput(cmd, &ExportResponseCLI{Path: out, Format: format, Metadata: doc.Metadata}, s.format)
}
