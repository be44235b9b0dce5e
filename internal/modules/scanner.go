package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fortdeps/internal/config"
	"fortdeps/internal/fortran"
	"fortdeps/internal/slogutil"
	"fortdeps/internal/storage"
)

// ErrInvalidDeclaration wraps FORTRAN.toml load and validation failures.
var ErrInvalidDeclaration = errors.New("invalid declaration")

// RunRecorder persists scan history.
type RunRecorder interface {
	RecordRun(run storage.ScanRun) (string, error)
}

// Pruner drops cached results for files that no longer exist.
type Pruner interface {
	Prune(live []string) (int, error)
}

// FailedFile is a source the reader could not finish.
type FailedFile struct {
	Path   string `json:"path" yaml:"path" toml:"path"`
	Reason string `json:"reason" yaml:"reason" toml:"reason"`
}

// ScanResult is everything one scan of a root produced.
type ScanResult struct {
	RunID      string            `json:"runId" yaml:"runId" toml:"runId"`
	Root       string            `json:"root" yaml:"root" toml:"root"`
	StartedAt  time.Time         `json:"startedAt" yaml:"startedAt" toml:"startedAt"`
	DurationMs int64             `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
	Status     string            `json:"status" yaml:"status" toml:"status"`
	Files      []*SourceFile     `json:"files" yaml:"files" toml:"files"`
	Edges      []*ImportEdge     `json:"edges" yaml:"edges" toml:"edges"`
	Modules    map[string]string `json:"modules" yaml:"modules" toml:"modules"`
	Duplicates []Duplicate       `json:"duplicates" yaml:"duplicates" toml:"duplicates"`
	Unresolved []string          `json:"unresolved" yaml:"unresolved" toml:"unresolved"`
	BuildOrder []string          `json:"buildOrder" yaml:"buildOrder" toml:"buildOrder"`
	Cycles     []Cycle           `json:"cycles" yaml:"cycles" toml:"cycles"`
	Blocked    []string          `json:"blocked" yaml:"blocked" toml:"blocked"`
	Failed     []FailedFile      `json:"failed" yaml:"failed" toml:"failed"`
	Skipped    []string          `json:"skipped" yaml:"skipped" toml:"skipped"`
	CacheHits  int               `json:"cacheHits" yaml:"cacheHits" toml:"cacheHits"`
}

// Scanner provides high-level dependency scanning of a source tree
type Scanner struct {
	config *config.Config
	logger *slog.Logger
	cache  ResultCache
	runs   RunRecorder
}

// NewScanner creates a scanner without cache or run history.
func NewScanner(cfg *config.Config, logger *slog.Logger) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Scanner{config: cfg, logger: logger}
}

// WithCache makes the scanner consult and fill cache. If cache also
// implements Pruner, results for vanished files are dropped after each scan.
func (s *Scanner) WithCache(cache ResultCache) *Scanner {
	s.cache = cache
	return s
}

// WithRunLog records every scan in runs.
func (s *Scanner) WithRunLog(runs RunRecorder) *Scanner {
	s.runs = runs
	return s
}

// Scan walks root, classifies every Fortran source and resolves the
// dependency graph.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", fortran.ErrSourceNotFound, root)
	}

	decl, err := LoadDeclaration(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDeclaration, err)
	}

	result := &ScanResult{
		RunID:     storage.NewRunID(),
		Root:      root,
		StartedAt: time.Now().UTC(),
	}
	logger := s.logger.With("run_id", result.RunID)
	logger.Info("Scanning Fortran sources", "root", root)

	scanner := NewImportScanner(&s.config.Scan, decl, s.cache, logger)
	dir, err := scanner.ScanDirectory(ctx, root)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Status = storage.RunTimeout
			s.record(logger, result)
		}
		return nil, err
	}

	intrinsic := append(append([]string(nil), s.config.Intrinsic...), decl.Intrinsic...)
	graph := BuildGraph(dir.Files, intrinsic, decl.External)

	result.Files = dir.Files
	result.Skipped = dir.Skipped
	result.CacheHits = dir.CacheHits
	result.Edges = graph.Edges
	result.Modules = graph.Modules
	result.Duplicates = graph.Duplicates
	result.Unresolved = graph.Unresolved
	result.BuildOrder = graph.BuildOrder
	result.Cycles = graph.Cycles
	result.Blocked = graph.Blocked
	result.Failed = []FailedFile{}
	if result.Skipped == nil {
		result.Skipped = []string{}
	}
	for _, f := range dir.Files {
		if !f.OK {
			result.Failed = append(result.Failed, FailedFile{Path: f.Path, Reason: f.Failure})
		}
	}
	result.Status = storage.RunComplete
	if len(result.Failed) > 0 {
		result.Status = storage.RunPartial
	}

	if pruner, ok := s.cache.(Pruner); ok {
		live := make([]string, len(dir.Files))
		for i, f := range dir.Files {
			live[i] = f.Path
		}
		if n, err := pruner.Prune(live); err != nil {
			logger.Warn("Failed to prune result cache", "error", err)
		} else if n > 0 {
			logger.Debug("Pruned result cache", "removed", n)
		}
	}

	s.record(logger, result)
	logger.Info("Scan completed",
		"files", len(result.Files),
		"edges", len(result.Edges),
		"failed", len(result.Failed),
		"cycles", len(result.Cycles),
		"duration_ms", result.DurationMs)
	return result, nil
}

func (s *Scanner) record(logger *slog.Logger, result *ScanResult) {
	finished := time.Now().UTC()
	result.DurationMs = finished.Sub(result.StartedAt).Milliseconds()
	if s.runs == nil {
		return
	}
	_, err := s.runs.RecordRun(storage.ScanRun{
		RunID:      result.RunID,
		Root:       result.Root,
		StartedAt:  result.StartedAt,
		FinishedAt: finished,
		Files:      len(result.Files),
		Failed:     len(result.Failed),
		Edges:      len(result.Edges),
		Cycles:     len(result.Cycles),
		CacheHits:  result.CacheHits,
		Status:     result.Status,
	})
	if err != nil {
		logger.Warn("Failed to record scan run", "error", err)
	}
}

// FilterImportsByKind returns the edges of the given kinds in order.
func FilterImportsByKind(edges []*ImportEdge, kinds ...ImportEdgeKind) []*ImportEdge {
	kindMap := make(map[ImportEdgeKind]bool, len(kinds))
	for _, kind := range kinds {
		kindMap[kind] = true
	}
	var filtered []*ImportEdge
	for _, edge := range edges {
		if kindMap[edge.Kind] {
			filtered = append(filtered, edge)
		}
	}
	return filtered
}

// GetImportStatistics counts edges per kind.
func GetImportStatistics(edges []*ImportEdge) map[ImportEdgeKind]int {
	stats := map[ImportEdgeKind]int{
		LocalModule:   0,
		SelfReference: 0,
		Intrinsic:     0,
		External:      0,
		Unknown:       0,
	}
	for _, edge := range edges {
		stats[edge.Kind]++
	}
	return stats
}
