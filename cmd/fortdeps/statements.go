package main

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"fortdeps/internal/errors"
	"fortdeps/internal/fortran"
)

var statementsOptions string

var statementsCmd = &cobra.Command{
	Use:   "statements <file>",
	Short: "Print the logical statements of a Fortran source",
	Long: `Print the logical statements the reader assembles from a Fortran source:
continuation lines joined, comments and labels dropped, blanks outside
character literals removed.

The source form comes from the file extension (.f .for .F fixed,
.f90 .f95 .F90 .F95 free) and can be overridden with --options.

Examples:
  fortdeps statements src/mesh.f90
  fortdeps statements legacy/solver.f --options="-e"
  fortdeps statements kernel.f --options="-free" --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatements,
}

func init() {
	statementsCmd.Flags().StringVar(&statementsOptions, "options", "", "Reader options (-fixed, -free, -e, -fpp)")
	rootCmd.AddCommand(statementsCmd)
}

func runStatements(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return classify(err)
	}
	s, err := newSession(cmd, projectRoot(path))
	if err != nil {
		return err
	}
	defer s.Close()

	options, err := s.fileOptions(path, statementsOptions)
	if err != nil {
		return err
	}
	r, err := fortran.Open(path, options, s.logger)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = r.Close() }()

	resp := &StatementsResponseCLI{
		File:       args[0],
		Format:     r.Format().String(),
		Statements: []StatementCLI{},
	}
	var readErr error
	for {
		stmt, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			resp.Error = err.Error()
			break
		}
		resp.Statements = append(resp.Statements, StatementCLI{Line: stmt.Line, Text: stmt.Text})
	}

	s.logger.Debug("Read statements",
		"file", r.Name(),
		"format", resp.Format,
		"statements", len(resp.Statements),
	)
	if err := writeOutput(cmd, resp, s.format); err != nil {
		return err
	}
	if readErr != nil {
		if coded, ok := classify(readErr).(*errors.Error); ok {
			return expandFix(coded, args[0])
		}
		return readErr
	}
	return nil
}
