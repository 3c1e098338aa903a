// Package tracestore records trace lines in a SQLite database.
package tracestore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/pinvm/trace"
)

// ErrRunNotFound indicates no lines were recorded under the requested run.
var ErrRunNotFound = errors.New("run not found")

// Store is a trace.Sink that appends every line to the traces table under
// the run id of the store. Open a new Store for each program run.
type Store struct {
	db     *sql.DB
	dbPath string
	run    string

	mu  sync.Mutex
	seq int
	err error
}

var _ trace.Sink = (*Store)(nil)

// Open opens or creates the database at dbPath and starts a new run.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS traces (
		run  TEXT NOT NULL,
		seq  INTEGER NOT NULL,
		line TEXT NOT NULL,
		PRIMARY KEY (run, seq)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, run: uuid.New().String()}, nil
}

// Run is the id the store records lines under.
func (s *Store) Run() string { return s.run }

// Path is the database file.
func (s *Store) Path() string { return s.dbPath }

// Log stores one trace line. Write failures are kept and reported by Err;
// later lines are dropped.
func (s *Store) Log(values ...any) {
	line := trace.Line(values...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}

	_, err := s.db.Exec("INSERT INTO traces (run, seq, line) VALUES (?, ?, ?)", s.run, s.seq, line)
	if err != nil {
		s.err = fmt.Errorf("saving trace line %d: %w", s.seq, err)
		return
	}
	s.seq++
}

// Err returns the first write failure, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Lines returns the lines recorded under run in order.
func (s *Store) Lines(run string) ([]string, error) {
	rows, err := s.db.Query("SELECT line FROM traces WHERE run = ? ORDER BY seq", run)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning trace line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading run: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrRunNotFound
	}
	return lines, nil
}

// Runs lists every run id in the database.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT run FROM traces ORDER BY run")
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var run string
		if err := rows.Scan(&run); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
