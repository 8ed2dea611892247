// Package runstore records training runs and their per-epoch losses in a
// libSQL database.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER,
		epochs      INTEGER NOT NULL,
		batch_size  INTEGER NOT NULL,
		lr          REAL NOT NULL,
		accuracy    REAL,
		model_path  TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS epochs (
		run_id TEXT NOT NULL REFERENCES runs(id),
		epoch  INTEGER NOT NULL,
		loss   REAL NOT NULL,
		PRIMARY KEY (run_id, epoch)
	)`,
}

// Run is one training run.
type Run struct {
	ID           string
	Started      time.Time
	Finished     time.Time // zero while running
	Epochs       int
	BatchSize    int
	LearningRate float64
	Accuracy     float64
	ModelPath    string
	Losses       []float64 // summed loss per epoch, epoch 1 first
}

// Store is a handle on the run database.
type Store struct {
	db *sql.DB
}

// Open connects to dsn ("file:runs.db" or a libsql:// URL) and creates the
// schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("runstore: open %s: %w", dsn, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: begin schema: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("runstore: schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Begin inserts a new run. r.Started defaults to now.
func (s *Store) Begin(ctx context.Context, r Run) error {
	if r.Started.IsZero() {
		r.Started = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, epochs, batch_size, lr) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Started.UnixNano(), r.Epochs, r.BatchSize, r.LearningRate)
	if err != nil {
		return fmt.Errorf("runstore: begin %s: %w", r.ID, err)
	}
	return nil
}

// RecordEpoch stores the summed loss of one epoch. Its signature matches
// train.EpochFunc.
func (s *Store) RecordEpoch(ctx context.Context, runID string, epoch int, loss float64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO epochs (run_id, epoch, loss) VALUES (?, ?, ?)",
		runID, epoch, loss)
	if err != nil {
		return fmt.Errorf("runstore: epoch %d of %s: %w", epoch, runID, err)
	}
	return nil
}

// Finish marks a run complete with its test accuracy and artifact path.
func (s *Store) Finish(ctx context.Context, runID string, accuracy float64, modelPath string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, accuracy = ?, model_path = ? WHERE id = ?",
		time.Now().UTC().UnixNano(), accuracy, modelPath, runID)
	if err != nil {
		return fmt.Errorf("runstore: finish %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("runstore: finish %s: %w", runID, ErrNotFound)
	}
	return nil
}

// Get loads a run with its epoch losses.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	var (
		r         = Run{ID: runID}
		started   int64
		finished  sql.NullInt64
		accuracy  sql.NullFloat64
		modelPath sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT started_at, finished_at, epochs, batch_size, lr, accuracy, model_path FROM runs WHERE id = ?",
		runID).Scan(&started, &finished, &r.Epochs, &r.BatchSize, &r.LearningRate, &accuracy, &modelPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("runstore: %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: get %s: %w", runID, err)
	}
	r.Started = time.Unix(0, started).UTC()
	if finished.Valid {
		r.Finished = time.Unix(0, finished.Int64).UTC()
	}
	r.Accuracy = accuracy.Float64
	r.ModelPath = modelPath.String

	rows, err := s.db.QueryContext(ctx, "SELECT loss FROM epochs WHERE run_id = ? ORDER BY epoch", runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: epochs of %s: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var loss float64
		if err := rows.Scan(&loss); err != nil {
			return nil, err
		}
		r.Losses = append(r.Losses, loss)
	}
	return &r, rows.Err()
}
