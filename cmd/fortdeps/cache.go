package main

import (
	"github.com/spf13/cobra"

	"fortdeps/internal/errors"
	"fortdeps/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the per-file result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [dir]",
	Short: "Show result cache statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dir]",
	Short: "Drop every cached file result (run history is kept)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// openCache opens the database and result cache under root.
func openCache(s *session) (*storage.DB, *storage.ResultCache, error) {
	db, err := storage.Open(s.root, s.logger)
	if err != nil {
		return nil, nil, errors.New(errors.CacheUnavailable, "Failed to open result cache", err)
	}
	cache, err := storage.NewResultCache(db, s.config.Cache.LRUSize)
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.New(errors.CacheUnavailable, "Failed to open result cache", err)
	}
	return db, cache, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	root, err := rootDir(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	db, cache, err := openCache(s)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	stats, err := cache.Stats()
	if err != nil {
		return errors.New(errors.CacheUnavailable, "Failed to read cache statistics", err)
	}
	return writeOutput(cmd, &CacheStatsResponseCLI{Stats: stats}, s.format)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	root, err := rootDir(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	db, cache, err := openCache(s)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := cache.Clear(); err != nil {
		return errors.New(errors.CacheUnavailable, "Failed to clear result cache", err)
	}
	s.logger.Info("Result cache cleared", "path", db.Path())
	return writeOutput(cmd, &CacheClearResponseCLI{Path: db.Path(), Cleared: true}, s.format)
}
