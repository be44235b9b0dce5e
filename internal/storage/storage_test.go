package storage

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(root, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db, root
}

func TestDatabaseInitialization(t *testing.T) {
	db, root := setupTestDB(t)

	dbPath := filepath.Join(root, ".fortdeps", "fortdeps.db")
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("Database file was not created at %s: %v", dbPath, err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", db.Path(), dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"schema_version", "file_results", "scan_runs"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	root := t.TempDir()

	db, err := Open(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordRun(ScanRun{Root: root}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(root, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(0)
	if err != nil || len(runs) != 1 {
		t.Errorf("runs after reopen = %d, %v; want 1", len(runs), err)
	}
}

func TestMigrationFromVersion1(t *testing.T) {
	root := t.TempDir()
	db, err := Open(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Roll the database back to the version 1 layout.
	err = db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DROP TABLE scan_runs"); err != nil {
			return err
		}
		return setSchemaVersion(tx, 1)
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	db, err = Open(root, nil)
	if err != nil {
		t.Fatalf("reopen with migration: %v", err)
	}
	defer func() { _ = db.Close() }()

	if v, _ := db.getSchemaVersion(); v != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", v, currentSchemaVersion)
	}
	if _, err := db.RecordRun(ScanRun{Root: root}); err != nil {
		t.Errorf("scan_runs not recreated: %v", err)
	}
}

func TestNewerSchemaRejected(t *testing.T) {
	root := t.TempDir()
	db, err := Open(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.WithTx(func(tx *sql.Tx) error { return setSchemaVersion(tx, currentSchemaVersion+1) }); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if db, err := Open(root, nil); err == nil {
		_ = db.Close()
		t.Error("Open should refuse a newer schema")
	}
}

func TestWithTx(t *testing.T) {
	db, _ := setupTestDB(t)

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTx(func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO file_results
				(path, checksum, options, revision, format, ok, entries_json, scanned_at)
				VALUES ('a.f', 'x', '', 1, 'fixed', 1, '[]', '2026-01-01T00:00:00Z')`); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithTx = %v, want boom", err)
		}
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM file_results").Scan(&n); err != nil || n != 0 {
			t.Errorf("rows after rollback = %d, %v", n, err)
		}
	})

	t.Run("rollback on panic", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_ = db.WithTx(func(tx *sql.Tx) error { panic("bad") })
	})
}

func TestCloseNil(t *testing.T) {
	var db *DB
	if err := db.Close(); err != nil {
		t.Errorf("Close on nil DB = %v", err)
	}
}
