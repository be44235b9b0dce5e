package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fortdeps/internal/config"
	"fortdeps/internal/errors"
	"fortdeps/internal/fortran"
	"fortdeps/internal/modules"
	"fortdeps/internal/paths"
	"fortdeps/internal/slogutil"
)

// session is the per-command state shared by every subcommand.
type session struct {
	root    string
	config  *config.Config
	logger  *slog.Logger
	format  OutputFormat
	factory *slogutil.LoggerFactory
}

// Close releases log files.
func (s *session) Close() {
	_ = s.factory.Close()
}

// fileOptions returns the reader options for a single file: configured
// defaults, then FORTRAN.toml rules, then the --options flag.
func (s *session) fileOptions(path, flag string) (string, error) {
	decl, err := modules.LoadDeclaration(s.root)
	if err != nil {
		return "", classify(fmt.Errorf("%w: %w", modules.ErrInvalidDeclaration, err))
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	options := decl.EffectiveOptions(s.config.Scan.DefaultOptions, filepath.ToSlash(rel))
	return strings.TrimSpace(options + " " + flag), nil
}

// rootDir resolves the optional directory argument, defaulting to the
// working directory.
func rootDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.New(errors.InternalError, "Failed to resolve directory", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", errors.Newf(errors.SourceNotFound, "%s is not a directory", abs)
	}
	return abs, nil
}

// projectRoot finds the scan root for a single file: the nearest ancestor
// directory holding FORTRAN.toml or .fortdeps/. Without one it falls back to
// the working directory when it contains path, else to the file's directory.
func projectRoot(path string) string {
	for dir := filepath.Dir(path); ; {
		if exists(paths.DeclarationPath(dir)) || exists(paths.StateDir(dir)) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if wd, err := os.Getwd(); err == nil && paths.IsWithinRoot(path, wd) {
		return wd
	}
	return filepath.Dir(path)
}

// newSession loads config for root and builds the logger.
func newSession(cmd *cobra.Command, root string) (*session, error) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "Invalid configuration", err)
	}

	var cliLevel *slog.Level
	if quiet || verbosity > 0 {
		level := slogutil.LevelFromVerbosity(verbosity, quiet)
		cliLevel = &level
	}
	factory := slogutil.NewLoggerFactory(root, cfg, cliLevel)

	format := outputFormat
	if format == "" {
		format = cfg.Logging.Format
	}
	parsed, err := ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}

	return &session{
		root:    root,
		config:  cfg,
		logger:  factory.CLILogger(cmd.ErrOrStderr()).With("command", cmd.Name()),
		format:  parsed,
		factory: factory,
	}, nil
}

// newContext returns a context cancelled by an interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// classify maps package errors onto coded CLI errors.
func classify(err error) error {
	var coded *errors.Error
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &coded):
		return err
	case stderrors.Is(err, fortran.ErrSourceNotFound):
		return errors.New(errors.SourceNotFound, "Source not found", err)
	case stderrors.Is(err, fortran.ErrUnexpectedEOF):
		return errors.New(errors.ParseFailed, "Source ended inside a statement", err)
	case stderrors.Is(err, modules.ErrInvalidDeclaration):
		return errors.New(errors.DeclarationInvalid, "Invalid "+modules.DeclarationFile, err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.New(errors.Timeout, "Scan timed out", err)
	case stderrors.Is(err, context.Canceled):
		return errors.New(errors.Timeout, "Scan interrupted", err)
	}
	return errors.New(errors.InternalError, "Unexpected failure", err)
}

// printError writes err and any suggested fixes.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var coded *errors.Error
	if !stderrors.As(err, &coded) || len(coded.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSuggested fixes:")
	for _, fix := range coded.SuggestedFixes {
		switch fix.Type {
		case errors.RunCommand:
			fmt.Fprintf(w, "  $ %s\n", fix.Command)
		case errors.EditFile:
			fmt.Fprintf(w, "  edit %s\n", fix.Path)
		}
		if fix.Description != "" {
			fmt.Fprintf(w, "    %s\n", fix.Description)
		}
	}
}

// expandFix substitutes ${file} in suggested commands.
func expandFix(err *errors.Error, file string) *errors.Error {
	for i := range err.SuggestedFixes {
		err.SuggestedFixes[i].Command = strings.ReplaceAll(err.SuggestedFixes[i].Command, "${file}", file)
	}
	return err
}

// writeOutput formats resp and prints it to the command's stdout.
func writeOutput(cmd *cobra.Command, resp any, format OutputFormat) error {
	out, err := FormatResponse(resp, format)
	if err != nil {
		return errors.New(errors.InternalError, "Failed to format output", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
	return err
}
