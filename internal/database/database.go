package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB owns the single shared SQLite connection used by every repository
type DB struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at dbPath and ensures the schema exists
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One process, one writer. Keeping a single connection also makes ":memory:" usable.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite applies the pragmas the logger relies on
func optimizeSQLite(db *sql.DB) error {
	pragmas := []struct {
		stmt string
		desc string
	}{
		// WAL keeps readers unblocked while a record with large pictures is written
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA synchronous=NORMAL", "set synchronous mode"},
		{"PRAGMA temp_store=MEMORY", "set temp_store"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			return fmt.Errorf("failed to %s: %w", p.desc, err)
		}
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Records returns the repository for aircraft records
func (d *DB) Records() RecordRepository {
	return NewRecordRepository(d.db)
}

// ShellCache returns the repository backing the offline asset cache
func (d *DB) ShellCache() ShellCacheRepository {
	return NewShellCacheRepository(d.db)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	recordsSchema := `CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		aircraft_model TEXT NOT NULL,
		ac_number TEXT NOT NULL,
		mo_number TEXT NOT NULL DEFAULT '',
		monument_number TEXT NOT NULL,
		start_date TEXT NOT NULL,
		finish_date TEXT NOT NULL,
		issues TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		pictures TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);`

	shellCacheSchema := `CREATE TABLE IF NOT EXISTS shell_cache (
		cache_name TEXT NOT NULL,
		url TEXT NOT NULL,
		status INTEGER NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		body BLOB,
		stored_at INTEGER NOT NULL,
		PRIMARY KEY (cache_name, url)
	);`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at DESC, id)`,
	}

	if _, err := d.db.Exec(recordsSchema); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}

	if _, err := d.db.Exec(shellCacheSchema); err != nil {
		return fmt.Errorf("failed to create shell_cache table: %w", err)
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
