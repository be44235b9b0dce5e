package modules

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fortdeps/internal/config"
	"fortdeps/internal/fortran"
	"fortdeps/internal/paths"
	"fortdeps/internal/slogutil"
	"fortdeps/internal/storage"
)

// ResultCache is the per-file cache consulted before reading a source.
type ResultCache interface {
	Lookup(path, checksum, options string) (storage.FileRecord, bool, error)
	Store(rec storage.FileRecord) error
}

// DirectoryScan is the outcome of walking one root.
type DirectoryScan struct {
	// Files are in walk order.
	Files []*SourceFile

	// Skipped lists root-relative paths over the size limit.
	Skipped []string

	CacheHits int
}

// ImportScanner reads Fortran sources and extracts their MODULE and USE entries.
type ImportScanner struct {
	config    *config.ScanConfig
	decl      *Declaration
	cache     ResultCache
	logger    *slog.Logger
	cacheHits atomic.Int64
}

// NewImportScanner creates a scanner. decl and cache may be nil.
func NewImportScanner(cfg *config.ScanConfig, decl *Declaration, cache ResultCache, logger *slog.Logger) *ImportScanner {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &ImportScanner{config: cfg, decl: decl, cache: cache, logger: logger}
}

// ScanFile scans a single file under root. Missing, unreadable and
// truncated files come back with OK false; only a reader contract
// violation is returned as an error.
func (s *ImportScanner) ScanFile(filePath string, root string) (*SourceFile, error) {
	rel, err := paths.CanonicalizePath(filePath, root)
	if err != nil {
		return nil, err
	}

	options := s.decl.EffectiveOptions(s.config.DefaultOptions, rel)
	opts, unknown := fortran.ResolveOptions(filePath, options)
	if len(unknown) > 0 {
		s.logger.Debug("Ignoring unknown reader options", "file", rel, "options", unknown)
	}
	if !opts.KnownExtension {
		s.logger.Debug("Unrecognized Fortran extension, assuming fixed form", "file", rel)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		failure := "read failed: " + err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			failure = fortran.ErrSourceNotFound.Error()
			s.logger.Debug("Source vanished during scan", "file", rel)
		} else {
			s.logger.Warn("Cannot read source", "file", rel, "error", err)
		}
		return &SourceFile{
			Path:     rel,
			Format:   opts.Format.String(),
			Options:  options,
			Provides: []ModuleRef{},
			Uses:     []ModuleRef{},
			Failure:  failure,
		}, nil
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	if s.cache != nil {
		rec, ok, err := s.cache.Lookup(rel, checksum, options)
		if err != nil {
			s.logger.Warn("Result cache lookup failed", "file", rel, "error", err)
		} else if ok {
			s.cacheHits.Add(1)
			f := newSourceFile(rel, opts, options, checksum, rec.Entries)
			f.OK, f.Failure, f.Cached = rec.OK, rec.Failure, true
			return f, nil
		}
	}

	reader := fortran.NewReader(bytes.NewReader(data), rel, opts, s.logger)
	entries, err := fortran.Classify(reader)
	var f *SourceFile
	switch {
	case err == nil:
		f = newSourceFile(rel, opts, options, checksum, entries)
	case errors.Is(err, fortran.ErrUnexpectedEOF):
		s.logger.Info("Fortran parsing failed", "file", rel, "error", err)
		f = newSourceFile(rel, opts, options, checksum, nil)
		f.OK, f.Failure = false, err.Error()
	default:
		return nil, fmt.Errorf("scanning %s: %w", rel, err)
	}

	if s.cache != nil {
		rec := storage.FileRecord{
			Path:     rel,
			Checksum: checksum,
			Options:  options,
			Format:   f.Format,
			OK:       f.OK,
			Failure:  f.Failure,
			Entries:  entries,
		}
		if err := s.cache.Store(rec); err != nil {
			s.logger.Warn("Result cache store failed", "file", rel, "error", err)
		}
	}
	return f, nil
}

// ScanDirectory walks root and scans every matching source with a bounded
// worker pool. Results keep walk order. The walk stops at the configured
// timeout.
func (s *ImportScanner) ScanDirectory(ctx context.Context, root string) (*DirectoryScan, error) {
	if s.config.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	candidates, skipped, err := s.collect(ctx, root)
	if err != nil {
		return nil, err
	}

	workers := s.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	before := s.cacheHits.Load()
	results := make([]*SourceFile, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range candidates {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := s.ScanFile(p, root)
			if err != nil {
				return err
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, ctxErr)
		}
		return nil, err
	}

	scan := &DirectoryScan{
		Files:     results,
		Skipped:   skipped,
		CacheHits: int(s.cacheHits.Load() - before),
	}
	s.logger.Info("Import scan completed",
		"files", len(results),
		"skipped", len(skipped),
		"cache_hits", scan.CacheHits,
		"workers", workers)
	return scan, nil
}

// collect walks root and returns the absolute paths to scan in lexical order.
func (s *ImportScanner) collect(ctx context.Context, root string) ([]string, []string, error) {
	exts := make(map[string]bool, len(s.config.Extensions))
	for _, ext := range s.config.Extensions {
		exts[ext] = true
	}
	ignoreDirs := make(map[string]bool, len(s.config.Ignore))
	for _, dir := range s.config.Ignore {
		ignoreDirs[dir] = true
	}

	var candidates, skipped []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root {
				return err
			}
			s.logger.Warn("Skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (ignoreDirs[d.Name()] || s.decl.IsIgnored(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !exts[filepath.Ext(p)] || s.decl.IsIgnored(rel) {
			return nil
		}

		if s.config.MaxFileSizeBytes > 0 {
			info, err := d.Info()
			if err != nil {
				return nil //nolint:nilerr // the file disappeared between listing and stat
			}
			if info.Size() > s.config.MaxFileSizeBytes {
				s.logger.Debug("Skipping file: too large", "file", rel, "size", info.Size())
				skipped = append(skipped, rel)
				return nil
			}
		}

		candidates = append(candidates, p)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("walking %s: %w", root, ctxErr)
		}
		return nil, nil, err
	}
	return candidates, skipped, nil
}
