package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalPragmas are set on every connection to the journal. The history
// command reads the journal while a run is still writing to it, hence WAL.
var journalPragmas = []struct {
	name, value string
}{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migration upgrades a journal from version-1 to version. The base tables
// in schema.sql are version 0.
type migration struct {
	version int
	stmt    string
}

var migrations = []migration{
	// history lists the newest runs first
	{1, `CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC, id DESC)`},
}

// Store is the run journal: one row per run with its parameters and
// module counters.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating the file and its tables on
// first use and upgrading an older journal in place.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run journal %s: %w", path, err)
	}
	// One writer per journal; a run records from a single goroutine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run journal %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for _, p := range journalPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("failed to set %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return upgrade(db)
}

// upgrade applies every migration newer than the journal's user_version,
// each in its own transaction together with the version bump.
func upgrade(db *sql.DB) error {
	var have int
	if err := db.QueryRow("PRAGMA user_version").Scan(&have); err != nil {
		return fmt.Errorf("failed to read journal version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= have {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration to version %d: %w", m.version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration to version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration to version %d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma returns the current value of a connection setting.
func (s *Store) pragma(name string) (string, error) {
	var value string
	err := s.db.QueryRow("PRAGMA " + name).Scan(&value)
	return value, err
}
