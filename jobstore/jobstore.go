// Package jobstore persists solver run history (parameters, outcome,
// timing) to SQLite, so a daemon front end can list and re-inspect past
// runs after a restart.
package jobstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// State is the lifecycle stage of a solver run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes State as its lowercase name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Run records one solver invocation: the parameters it was given, and
// (once finished) its final energy and error, if any.
type Run struct {
	ID         string
	LeftPath   string
	RightPath  string
	ParamsJSON string // json-encoded parameters the run was submitted with, kept opaque here
	State      State
	Energy     int
	Steps      int
	Error      string
	CreatedAt  time.Time
	FinishedAt sql.NullTime
}

// Store wraps a SQLite database of Run rows.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the runs table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTable() error {
	const query = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		left_path TEXT NOT NULL,
		right_path TEXT NOT NULL,
		params_json TEXT NOT NULL,
		state INTEGER NOT NULL,
		energy INTEGER,
		steps INTEGER,
		error TEXT,
		created_at DATETIME NOT NULL,
		finished_at DATETIME
	)`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Create inserts a new pending run and returns its generated ID.
func (s *Store) Create(leftPath, rightPath, paramsJSON string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, left_path, right_path, params_json, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, leftPath, rightPath, paramsJSON, StatePending, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("jobstore: create: %w", err)
	}
	return id, nil
}

// MarkRunning flips a run's state to running.
func (s *Store) MarkRunning(id string) error {
	_, err := s.db.Exec(`UPDATE runs SET state = ? WHERE id = ?`, StateRunning, id)
	return err
}

// MarkCompleted records a successful run's final energy and step count.
func (s *Store) MarkCompleted(id string, energy, steps int) error {
	_, err := s.db.Exec(
		`UPDATE runs SET state = ?, energy = ?, steps = ?, finished_at = ? WHERE id = ?`,
		StateCompleted, energy, steps, time.Now(), id,
	)
	return err
}

// MarkFailed records a run's failure reason.
func (s *Store) MarkFailed(id string, cause error) error {
	_, err := s.db.Exec(
		`UPDATE runs SET state = ?, error = ?, finished_at = ? WHERE id = ?`,
		StateFailed, cause.Error(), time.Now(), id,
	)
	return err
}

// Get loads a single run by ID.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, left_path, right_path, params_json, state, energy, steps, error, created_at, finished_at
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// List returns every run, most recently created first.
func (s *Store) List() ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, left_path, right_path, params_json, state, energy, steps, error, created_at, finished_at
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var state int
	var energy, steps sql.NullInt64
	var errStr sql.NullString
	if err := row.Scan(&r.ID, &r.LeftPath, &r.RightPath, &r.ParamsJSON, &state,
		&energy, &steps, &errStr, &r.CreatedAt, &r.FinishedAt); err != nil {
		return nil, fmt.Errorf("jobstore: scan run: %w", err)
	}
	r.State = State(state)
	r.Energy = int(energy.Int64)
	r.Steps = int(steps.Int64)
	r.Error = errStr.String
	return &r, nil
}
