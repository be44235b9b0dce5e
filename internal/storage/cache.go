package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"fortdeps/internal/fortran"
	"fortdeps/internal/version"
)

// FileRecord is the cached outcome of scanning one source file.
type FileRecord struct {
	Path      string
	Checksum  string
	Options   string
	Format    string
	OK        bool
	Failure   string
	Entries   []fortran.Entry
	ScannedAt time.Time
}

// entryRow is the JSON shape of a cached entry.
type entryRow struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Line int    `json:"line"`
}

// CacheStats summarizes the result cache.
type CacheStats struct {
	Files   int    `json:"files" yaml:"files"`
	Failed  int    `json:"failed" yaml:"failed"`
	Stale   int    `json:"stale" yaml:"stale"`
	Hits    int64  `json:"hits" yaml:"hits"`
	Misses  int64  `json:"misses" yaml:"misses"`
	LRUSize int    `json:"lruSize" yaml:"lruSize"`
	Path    string `json:"path" yaml:"path"`
}

// ResultCache stores per-file scan results in SQLite behind an in-process LRU.
// It is safe for concurrent use.
type ResultCache struct {
	db     *DB
	front  *lru.Cache[string, FileRecord]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache wraps db. lruSize <= 0 disables the in-process front.
func NewResultCache(db *DB, lruSize int) (*ResultCache, error) {
	c := &ResultCache{db: db}
	if lruSize > 0 {
		front, err := lru.New[string, FileRecord](lruSize)
		if err != nil {
			return nil, fmt.Errorf("creating LRU: %w", err)
		}
		c.front = front
	}
	return c, nil
}

// Lookup returns the record for path if it was stored under the same
// checksum, options and reader revision.
func (c *ResultCache) Lookup(path, checksum, options string) (FileRecord, bool, error) {
	if c.front != nil {
		if rec, ok := c.front.Get(path); ok && rec.Checksum == checksum && rec.Options == options {
			c.hits.Add(1)
			return rec, true, nil
		}
	}

	var (
		rec         FileRecord
		ok          int
		entriesJSON string
		scannedAt   string
	)
	err := c.db.QueryRow(`
		SELECT format, ok, failure, entries_json, scanned_at
		FROM file_results
		WHERE path = ? AND checksum = ? AND options = ? AND revision = ?
	`, path, checksum, options, version.ReaderRevision).Scan(&rec.Format, &ok, &rec.Failure, &entriesJSON, &scannedAt)
	if err == sql.ErrNoRows {
		c.misses.Add(1)
		return FileRecord{}, false, nil
	}
	if err != nil {
		return FileRecord{}, false, fmt.Errorf("result cache lookup failed: %w", err)
	}

	rec.Path, rec.Checksum, rec.Options, rec.OK = path, checksum, options, ok == 1
	if rec.Entries, err = decodeEntries(entriesJSON); err != nil {
		return FileRecord{}, false, fmt.Errorf("corrupt cache row for %s: %w", path, err)
	}
	if rec.ScannedAt, err = time.Parse(time.RFC3339, scannedAt); err != nil {
		return FileRecord{}, false, fmt.Errorf("invalid scanned_at for %s: %w", path, err)
	}

	if c.front != nil {
		c.front.Add(path, rec)
	}
	c.hits.Add(1)
	return rec, true, nil
}

// Store records rec, replacing any earlier result for the same path.
func (c *ResultCache) Store(rec FileRecord) error {
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now().UTC()
	}
	entriesJSON, err := encodeEntries(rec.Entries)
	if err != nil {
		return err
	}
	ok := 0
	if rec.OK {
		ok = 1
	}
	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO file_results
			(path, checksum, options, revision, format, ok, failure, entries_json, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Path, rec.Checksum, rec.Options, version.ReaderRevision, rec.Format, ok, rec.Failure,
		entriesJSON, rec.ScannedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store result for %s: %w", rec.Path, err)
	}
	if c.front != nil {
		c.front.Add(rec.Path, rec)
	}
	return nil
}

// Prune deletes records for paths not in live and returns how many went.
func (c *ResultCache) Prune(live []string) (int, error) {
	keep := make(map[string]bool, len(live))
	for _, p := range live {
		keep[p] = true
	}

	rows, err := c.db.Query("SELECT path FROM file_results")
	if err != nil {
		return 0, fmt.Errorf("listing cached paths: %w", err)
	}
	var gone []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if !keep[p] {
			gone = append(gone, p)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if len(gone) == 0 {
		return 0, nil
	}

	err = c.db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("DELETE FROM file_results WHERE path = ?")
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, p := range gone {
			if _, err := stmt.Exec(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	if c.front != nil {
		for _, p := range gone {
			c.front.Remove(p)
		}
	}
	return len(gone), nil
}

// Clear drops every cached file result. Run history is kept.
func (c *ResultCache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM file_results"); err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}
	if c.front != nil {
		c.front.Purge()
	}
	return nil
}

// Stats reports row counts and this process's hit counters.
func (c *ResultCache) Stats() (CacheStats, error) {
	stats := CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Path:   c.db.Path(),
	}
	if c.front != nil {
		stats.LRUSize = c.front.Len()
	}
	err := c.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN revision != ? THEN 1 ELSE 0 END), 0)
		FROM file_results
	`, version.ReaderRevision).Scan(&stats.Files, &stats.Failed, &stats.Stale)
	if err != nil {
		return CacheStats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return stats, nil
}

func encodeEntries(entries []fortran.Entry) (string, error) {
	rows := make([]entryRow, len(entries))
	for i, e := range entries {
		rows[i] = entryRow{Kind: string(rune(e.Kind)), Name: e.Name, Line: e.Line}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeEntries(s string) ([]fortran.Entry, error) {
	var rows []entryRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, err
	}
	entries := make([]fortran.Entry, len(rows))
	for i, r := range rows {
		if len(r.Kind) != 1 {
			return nil, fmt.Errorf("bad entry kind %q", r.Kind)
		}
		entries[i] = fortran.Entry{Kind: fortran.Kind(r.Kind[0]), Name: r.Name, Line: r.Line}
	}
	return entries, nil
}
