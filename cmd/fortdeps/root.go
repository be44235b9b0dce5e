package main

import (
	"github.com/spf13/cobra"

	"fortdeps/internal/version"
)

var (
	verbosity    int
	quiet        bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fortdeps",
	Short: "fortdeps - Fortran module dependency scanner",
	Long: `fortdeps reads fixed- and free-form Fortran sources, extracts MODULE
definitions and USE statements, and resolves them into a file-level
dependency graph with a build order.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.SetVersionTemplate("fortdeps version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format (human, json, yaml); defaults to logging.format")
}
