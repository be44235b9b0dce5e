package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createFileResultsTable(tx); err != nil {
			return err
		}
		if err := createScanRunsTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}
		db.logger.Debug("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations brings an existing database up to currentSchemaVersion.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations", "from_version", version, "to_version", currentSchemaVersion)

	return db.WithTx(func(tx *sql.Tx) error {
		if version < 1 {
			if err := createSchemaVersionTable(tx); err != nil {
				return err
			}
			if err := createFileResultsTable(tx); err != nil {
				return err
			}
		}
		if version < 2 {
			if err := createScanRunsTable(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createFileResultsTable holds one row per source file. A row is valid only
// for the checksum, options and reader revision it was recorded under.
func createFileResultsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS file_results (
			path TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			options TEXT NOT NULL,
			revision INTEGER NOT NULL,
			format TEXT NOT NULL,
			ok INTEGER NOT NULL CHECK(ok IN (0, 1)),
			failure TEXT NOT NULL DEFAULT '',
			entries_json TEXT NOT NULL,
			scanned_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create file_results table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_file_results_checksum ON file_results(checksum)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

func createScanRunsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS scan_runs (
			run_id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			files INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			edges INTEGER NOT NULL,
			cycles INTEGER NOT NULL,
			cache_hits INTEGER NOT NULL,
			status TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scan_runs table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_scan_runs_started_at ON scan_runs(started_at)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
