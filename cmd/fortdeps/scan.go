package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"fortdeps/internal/errors"
	"fortdeps/internal/fortran"
)

var scanOptions string

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "List the MODULE and USE statements of a Fortran source",
	Long: `List the MODULE definitions and USE statements of one Fortran source in
file order. Human output prints one entry per line: M or U followed by the
module name as written. MODULE PROCEDURE statements are not listed.

The command exits with status 1 when the file cannot be read or ends in
the middle of a statement.

Examples:
  fortdeps scan src/mesh.f90
  fortdeps scan legacy/solver.f --options="-e"
  fortdeps scan src/mesh.f90 --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanOptions, "options", "", "Reader options (-fixed, -free, -e, -fpp)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return classify(err)
	}
	s, err := newSession(cmd, projectRoot(path))
	if err != nil {
		return err
	}
	defer s.Close()

	options, err := s.fileOptions(path, scanOptions)
	if err != nil {
		return err
	}

	entries, ok, err := fortran.ScanFile(path, options, s.logger)
	if err != nil {
		return classify(err)
	}

	resp := &ScanResponseCLI{File: args[0], OK: ok, Entries: make([]EntryCLI, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryCLI{Kind: e.Kind.String(), Name: e.Name, Line: e.Line, Code: e.String()})
	}
	if err := writeOutput(cmd, resp, s.format); err != nil {
		return err
	}
	if !ok {
		return expandFix(errors.Newf(errors.ParseFailed, "%s could not be read to the end", args[0]), args[0])
	}
	return nil
}
