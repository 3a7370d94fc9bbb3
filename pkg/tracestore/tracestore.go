// Package tracestore records script execution traces in SQLite.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
//
// A Store is a vm.Observer: it records every script start as a run and counts
// executed lines per script, which tooling reads back as line coverage.
package tracestore

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/zurustar/jxscript/pkg/logger"
	"github.com/zurustar/jxscript/pkg/vm"
)

// Store manages the SQLite database connection for trace persistence.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	// line hits are counted in memory and written by Flush
	pending map[lineKey]int
	err     error
}

type lineKey struct {
	path string
	line int
}

// Run is one recorded script start.
type Run struct {
	ID        int64
	Path      string
	Total     int
	StartedAt time.Time
}

var _ vm.Observer = (*Store)(nil)

// Open creates or opens a trace database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tracestore: cannot create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("tracestore: cannot open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracestore: cannot connect to database: %w", err)
	}

	store := &Store{
		db:      db,
		log:     logger.GetLogger(),
		pending: make(map[lineKey]int),
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracestore: migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			total INTEGER NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_runs_path ON runs(path);

		CREATE TABLE IF NOT EXISTS line_hits (
			path TEXT NOT NULL,
			line INTEGER NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (path, line)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close flushes pending line hits and closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	flushErr := s.Flush()
	if err := s.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// OnScriptStart records a run.
func (s *Store) OnScriptStart(path string, totalInstructions int, literals []string) {
	if _, err := s.db.Exec("INSERT INTO runs (path, total) VALUES (?, ?)", path, totalInstructions); err != nil {
		s.fail(fmt.Errorf("tracestore: cannot save run: %w", err))
	}
}

// OnLineExecuted counts one execution of a line.
func (s *Store) OnLineExecuted(path string, lineNumber int) {
	s.pending[lineKey{path, lineNumber}]++
}

// fail keeps the first error; observers cannot return one.
func (s *Store) fail(err error) {
	if s.err == nil {
		s.err = err
		s.log.Error("Trace store error", "error", err)
	}
}

// Err returns the first error hit while observing.
func (s *Store) Err() error {
	return s.err
}

// Flush writes the counted line hits in one transaction.
func (s *Store) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("tracestore: cannot begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO line_hits (path, line, hits) VALUES (?, ?, ?)
		 ON CONFLICT(path, line) DO UPDATE SET hits = hits + excluded.hits`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("tracestore: cannot prepare statement: %w", err)
	}
	defer stmt.Close()

	for k, n := range s.pending {
		if _, err := stmt.Exec(k.path, k.line, n); err != nil {
			tx.Rollback()
			return fmt.Errorf("tracestore: cannot save line hits: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracestore: cannot commit line hits: %w", err)
	}
	s.pending = make(map[lineKey]int)
	return nil
}

// Coverage returns the recorded hit count of every executed line of path.
// Hits not yet flushed are included.
func (s *Store) Coverage(path string) (map[int]int, error) {
	rows, err := s.db.Query("SELECT line, hits FROM line_hits WHERE path = ?", path)
	if err != nil {
		return nil, fmt.Errorf("tracestore: cannot query line hits: %w", err)
	}
	defer rows.Close()

	cov := make(map[int]int)
	for rows.Next() {
		var line, hits int
		if err := rows.Scan(&line, &hits); err != nil {
			return nil, fmt.Errorf("tracestore: cannot scan row: %w", err)
		}
		cov[line] = hits
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracestore: row iteration error: %w", err)
	}

	for k, n := range s.pending {
		if k.path == path {
			cov[k.line] += n
		}
	}
	return cov, nil
}

// Lines returns the executed line numbers of path in ascending order.
func (s *Store) Lines(path string) ([]int, error) {
	cov, err := s.Coverage(path)
	if err != nil {
		return nil, err
	}
	lines := make([]int, 0, len(cov))
	for l := range cov {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines, nil
}

// Runs returns every recorded run, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query("SELECT id, path, total, started_at FROM runs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("tracestore: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt any
		if err := rows.Scan(&r.ID, &r.Path, &r.Total, &startedAt); err != nil {
			return nil, fmt.Errorf("tracestore: cannot scan row: %w", err)
		}

		// Parse the datetime - handle both time.Time and string
		switch v := startedAt.(type) {
		case time.Time:
			r.StartedAt = v
		case string:
			if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
				r.StartedAt = parsed
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracestore: row iteration error: %w", err)
	}
	return runs, nil
}
