// Package cache persists analysis results across runs so re-hybridizing an
// unchanged translation unit skips C1-C7 entirely (§B.4). It is grounded on
// the now-retired internal/database's driver-dispatch Connect method: same
// switch-on-type-string DSN construction, same sql.Open/Ping handshake, now
// aimed at one fixed table instead of arbitrary attacker-supplied targets.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one cached analysis result, keyed by the hash of the exact
// source text that produced it.
type Entry struct {
	SourceHash string
	File       string
	Output     string
	ReportText string
	CreatedAt  time.Time
}

// Store is a SQL-backed cache of analysis results. A *Store is safe for
// concurrent use; driver-level connection pooling is left to database/sql,
// but schema creation is guarded so two goroutines opening the same Store
// don't race on CREATE TABLE.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open connects to a cache backend. driver selects the database/sql driver
// name ("sqlite3", "mysql", "postgres", "sqlserver"); dsn is passed through
// to sql.Open verbatim. For "sqlite3" dsn is simply the database file path,
// matching the teacher's Connect special-case for that driver.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3", "mysql", "postgres", "sqlserver":
		// supported
	default:
		return nil, fmt.Errorf("cache: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", driver, err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS analyses (
	source_hash TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	output      TEXT NOT NULL,
	report_text TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("cache: create schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashSource returns the cache key for a translation unit's source text.
func HashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached entry for hash, if one exists.
func (s *Store) Lookup(hash string) (*Entry, bool, error) {
	row := s.db.QueryRow(
		`SELECT source_hash, file, output, report_text, created_at FROM analyses WHERE source_hash = ?`,
		hash,
	)
	var e Entry
	if err := row.Scan(&e.SourceHash, &e.File, &e.Output, &e.ReportText, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: lookup: %w", err)
	}
	return &e, true, nil
}

// Put stores (or replaces) the result of analyzing a translation unit.
// createdAt is supplied by the caller rather than computed here, so the
// store stays a pure function of its inputs for test determinism.
func (s *Store) Put(hash, file, output, reportText string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO analyses (source_hash, file, output, report_text, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(source_hash) DO UPDATE SET file=excluded.file, output=excluded.output, report_text=excluded.report_text, created_at=excluded.created_at`,
		hash, file, output, reportText, createdAt,
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Evict removes a cached entry, if present. It reports whether a row was
// actually removed.
func (s *Store) Evict(hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM analyses WHERE source_hash = ?`, hash)
	if err != nil {
		return false, fmt.Errorf("cache: evict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cache: evict: %w", err)
	}
	return n > 0, nil
}

// Stats reports the number of cached entries, for the CLI's cache-info
// subcommand.
func (s *Store) Stats() (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM analyses`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: stats: %w", err)
	}
	return n, nil
}
