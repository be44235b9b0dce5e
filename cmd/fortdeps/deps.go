package main

import (
	"time"

	"github.com/spf13/cobra"

	"fortdeps/internal/errors"
	"fortdeps/internal/export"
	"fortdeps/internal/modules"
	"fortdeps/internal/storage"
)

var (
	depsNoCache bool
	depsDirs    bool
	depsStrict  bool
)

var depsCmd = &cobra.Command{
	Use:   "deps [dir]",
	Short: "Resolve the module dependency graph of a source tree",
	Long: `Scan every Fortran source under a directory, resolve USE statements to the
files defining the modules, and print a build order.

Files whose modules use each other are reported as cycles; files that depend
on a cycle are listed as blocked. USE of a module no scanned file defines is
classified as intrinsic, external (declared in FORTRAN.toml) or unknown.

Results are cached per file in .fortdeps/fortdeps.db and each scan is
recorded in the run history.

Examples:
  fortdeps deps
  fortdeps deps src/ --dirs
  fortdeps deps --no-cache --format=json
  fortdeps deps --strict   # exit 1 on cycles or failed files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().BoolVar(&depsNoCache, "no-cache", false, "Scan without reading or writing the result cache")
	depsCmd.Flags().BoolVar(&depsDirs, "dirs", false, "Append a per-directory summary (human format)")
	depsCmd.Flags().BoolVar(&depsStrict, "strict", false, "Exit with status 1 when files fail or cycles exist")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	start := time.Now()
	root, err := rootDir(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := scanTree(s, !depsNoCache)
	if err != nil {
		return err
	}

	resp := &DepsResponseCLI{Result: result, Stats: make(map[string]int)}
	for kind, n := range modules.GetImportStatistics(result.Edges) {
		resp.Stats[string(kind)] = n
	}
	if depsDirs {
		resp.Organized = export.NewOrganizer(result).Organize()
	}
	if err := writeOutput(cmd, resp, s.format); err != nil {
		return err
	}

	s.logger.Debug("Dependency scan completed",
		"root", root,
		"duration", time.Since(start).Milliseconds(),
	)

	if depsStrict {
		if len(result.Cycles) > 0 {
			return errors.Newf(errors.DependencyCycle, "%d dependency cycle(s) found", len(result.Cycles)).WithDetails(result.Cycles)
		}
		if len(result.Failed) > 0 {
			return errors.Newf(errors.ParseFailed, "%d file(s) could not be read to the end", len(result.Failed)).WithDetails(result.Failed)
		}
	}
	return nil
}

// scanTree scans s.root, using the result cache and run history unless
// disabled. An unusable database degrades to an uncached scan.
func scanTree(s *session, useCache bool) (*modules.ScanResult, error) {
	ctx, cancel := newContext()
	defer cancel()

	scanner := modules.NewScanner(s.config, s.logger)
	if useCache && s.config.Cache.Enabled {
		db, err := storage.Open(s.root, s.logger)
		if err != nil {
			s.logger.Warn("Result cache unavailable, scanning without it", "error", err)
		} else {
			defer func() { _ = db.Close() }()
			cache, err := storage.NewResultCache(db, s.config.Cache.LRUSize)
			if err != nil {
				return nil, errors.New(errors.CacheUnavailable, "Failed to create result cache", err)
			}
			scanner.WithCache(cache).WithRunLog(db)
		}
	}

	result, err := scanner.Scan(ctx, s.root)
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}
