package slogutil

import (
	"io"
	"log/slog"

	"fortdeps/internal/config"
	"fortdeps/internal/paths"
)

// LoggerFactory builds the CLI logger for a scan root.
// Precedence for the console level: CLI flags > logging.level > warn.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cliLevel is nil when no -v/-q flag was given.
func NewLoggerFactory(root string, cfg *config.Config, cliLevel *slog.Level) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{root: root, config: cfg, cliLevel: cliLevel}
}

// CLILogger returns a logger writing to console. When logging.file is set it
// also appends timestamped records to <root>/.fortdeps/logs/fortdeps.log.
// Failure to open the log file degrades to console only.
func (f *LoggerFactory) CLILogger(console io.Writer) *slog.Logger {
	consoleHandler := NewHandler(console, f.ConsoleLevel(), false)
	if !f.config.Logging.File || f.root == "" {
		return slog.New(consoleHandler)
	}

	if _, err := paths.EnsureLogsDir(f.root); err != nil {
		return slog.New(consoleHandler)
	}
	fileLogger, file, err := NewFileLogger(paths.LogPath(f.root), f.FileLevel())
	if err != nil {
		return slog.New(consoleHandler)
	}
	f.closers = append(f.closers, file)
	return NewTeeLogger(consoleHandler, fileLogger.Handler())
}

// ConsoleLevel is the effective level for console output.
func (f *LoggerFactory) ConsoleLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelWarn
}

// FileLevel is the level for the log file. Info records are always kept.
func (f *LoggerFactory) FileLevel() slog.Level {
	level := slog.LevelInfo
	if f.config.Logging.Level != "" {
		level = LevelFromString(f.config.Logging.Level)
	}
	if f.cliLevel != nil && *f.cliLevel < level {
		level = *f.cliLevel
	}
	return min(level, slog.LevelInfo)
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}

// NewTeeLogger creates a logger that writes to multiple destinations.
func NewTeeLogger(handlers ...slog.Handler) *slog.Logger {
	return slog.New(NewTeeHandler(handlers...))
}
