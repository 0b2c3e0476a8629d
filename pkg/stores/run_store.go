// Package stores persists provisioning run history in a local SQLite
// database so operators can inspect what earlier runs did on this host.
package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/aistack/stackup/pkg/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunRecord is a persisted provisioning run.
type RunRecord struct {
	ID          string             `json:"id"`
	Status      pipeline.RunStatus `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Duration    time.Duration      `json:"duration"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// RunStore records pipeline runs and their step results.
type RunStore struct {
	db   *sql.DB
	path string
}

// NewRunStore creates a store backed by the SQLite database at path.
func NewRunStore(path string) (*RunStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &RunStore{path: path}, nil
}

// Init opens the database, enables WAL mode, and runs migrations.
func (s *RunStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return s.migrate()
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *RunStore) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SaveReport persists a completed run and its step results in one
// transaction.
func (s *RunStore) SaveReport(ctx context.Context, report *pipeline.Report) error {
	warnings, err := json.Marshal(report.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, status, started_at, completed_at, duration_ms, warnings)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, string(report.Status), report.StartedAt,
		report.CompletedAt, report.Duration.Milliseconds(), string(warnings))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, step := range report.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_results (run_id, position, name, outcome, policy, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, i, step.Name, string(step.Outcome),
			string(step.Policy), nullable(step.Error), step.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert step result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, started_at, completed_at, duration_ms, warnings
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r           RunRecord
			status      string
			completedAt sql.NullTime
			durationMS  int64
			warnings    string
		)
		if err := rows.Scan(&r.ID, &status, &r.StartedAt, &completedAt, &durationMS, &warnings); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = pipeline.RunStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetSteps returns the step results for a run in execution order.
func (s *RunStore) GetSteps(ctx context.Context, runID string) ([]pipeline.StepResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, outcome, policy, error, duration_ms
		FROM step_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step results: %w", err)
	}
	defer rows.Close()

	var steps []pipeline.StepResult
	for rows.Next() {
		var (
			step       pipeline.StepResult
			outcome    string
			policy     string
			stepErr    sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&step.Name, &outcome, &policy, &stepErr, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan step result: %w", err)
		}
		step.Outcome = pipeline.Outcome(outcome)
		step.Policy = pipeline.FailurePolicy(policy)
		step.Error = stepErr.String
		step.Duration = time.Duration(durationMS) * time.Millisecond
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
