package main

import (
	"github.com/spf13/cobra"

	"fortdeps/internal/errors"
	"fortdeps/internal/storage"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [dir]",
	Short: "List recent dependency scans",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	root, err := rootDir(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	db, err := storage.Open(root, s.logger)
	if err != nil {
		return errors.New(errors.CacheUnavailable, "Failed to open run history", err)
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(runsLimit)
	if err != nil {
		return errors.New(errors.CacheUnavailable, "Failed to list runs", err)
	}
	if runs == nil {
		runs = []storage.ScanRun{}
	}
	return writeOutput(cmd, &RunsResponseCLI{Runs: runs}, s.format)
}
