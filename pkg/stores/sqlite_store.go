package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

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

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateEvaluation creates a new evaluation record
func (s *SQLiteStore) CreateEvaluation(ctx context.Context, eval *Evaluation) error {
	query := `
		INSERT INTO evaluations (
			id, status, root_count, computed, failed, restarts, cache_hits, dep_requests,
			started_at, completed_at, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		eval.ID,
		eval.Status,
		eval.RootCount,
		eval.Computed,
		eval.Failed,
		eval.Restarts,
		eval.CacheHits,
		eval.DepRequests,
		eval.StartedAt,
		eval.CompletedAt,
		eval.Error,
		eval.CreatedAt,
		eval.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	return nil
}

// GetEvaluation retrieves an evaluation by ID
func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (*Evaluation, error) {
	query := `
		SELECT id, status, root_count, computed, failed, restarts, cache_hits, dep_requests,
			   started_at, completed_at, error, created_at, updated_at
		FROM evaluations
		WHERE id = ?
	`

	eval := &Evaluation{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&eval.ID,
		&eval.Status,
		&eval.RootCount,
		&eval.Computed,
		&eval.Failed,
		&eval.Restarts,
		&eval.CacheHits,
		&eval.DepRequests,
		&eval.StartedAt,
		&eval.CompletedAt,
		&eval.Error,
		&eval.CreatedAt,
		&eval.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evaluation not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	return eval, nil
}

// FinishEvaluation marks an evaluation terminal and records its counters
func (s *SQLiteStore) FinishEvaluation(ctx context.Context, id string, status EvaluationStatus, stats EvaluationStats, errMsg *string) error {
	query := `
		UPDATE evaluations
		SET status = ?, computed = ?, failed = ?, restarts = ?, cache_hits = ?, dep_requests = ?,
			error = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var completedAt *time.Time
	if status == EvaluationStatusCompleted || status == EvaluationStatusFailed || status == EvaluationStatusCancelled {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query,
		status,
		stats.Computed,
		stats.Failed,
		stats.Restarts,
		stats.CacheHits,
		stats.DepRequests,
		errMsg,
		completedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish evaluation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("evaluation not found: %s", id)
	}

	return nil
}

// ListEvaluations lists evaluations with pagination
func (s *SQLiteStore) ListEvaluations(ctx context.Context, limit, offset int) ([]*Evaluation, error) {
	query := `
		SELECT id, status, root_count, computed, failed, restarts, cache_hits, dep_requests,
			   started_at, completed_at, error, created_at, updated_at
		FROM evaluations
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	evals := []*Evaluation{}
	for rows.Next() {
		eval := &Evaluation{}
		err := rows.Scan(
			&eval.ID,
			&eval.Status,
			&eval.RootCount,
			&eval.Computed,
			&eval.Failed,
			&eval.Restarts,
			&eval.CacheHits,
			&eval.DepRequests,
			&eval.StartedAt,
			&eval.CompletedAt,
			&eval.Error,
			&eval.CreatedAt,
			&eval.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, eval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return evals, nil
}

// DeleteEvaluation deletes an evaluation and its dependent rows
func (s *SQLiteStore) DeleteEvaluation(ctx context.Context, id string) error {
	query := `DELETE FROM evaluations WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("evaluation not found: %s", id)
	}

	return nil
}

// RecordNodeOutcomes inserts node outcomes in a single transaction
func (s *SQLiteStore) RecordNodeOutcomes(ctx context.Context, outcomes []*NodeOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO node_outcomes (
			evaluation_id, kind, node_key, status, error_class, error_message, restarts, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, outcome := range outcomes {
		result, err := stmt.ExecContext(ctx,
			outcome.EvaluationID,
			outcome.Kind,
			outcome.NodeKey,
			outcome.Status,
			outcome.ErrorClass,
			outcome.ErrorMessage,
			outcome.Restarts,
			outcome.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record node outcome %s: %w", outcome.NodeKey, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get outcome ID: %w", err)
		}
		outcome.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit node outcomes: %w", err)
	}

	return nil
}

// GetNodeOutcome retrieves one node's outcome within an evaluation
func (s *SQLiteStore) GetNodeOutcome(ctx context.Context, evaluationID, nodeKey string) (*NodeOutcome, error) {
	query := `
		SELECT id, evaluation_id, kind, node_key, status, error_class, error_message, restarts, recorded_at
		FROM node_outcomes
		WHERE evaluation_id = ? AND node_key = ?
	`

	outcome := &NodeOutcome{}
	err := s.db.QueryRowContext(ctx, query, evaluationID, nodeKey).Scan(
		&outcome.ID,
		&outcome.EvaluationID,
		&outcome.Kind,
		&outcome.NodeKey,
		&outcome.Status,
		&outcome.ErrorClass,
		&outcome.ErrorMessage,
		&outcome.Restarts,
		&outcome.RecordedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("node outcome not found: %s in %s", nodeKey, evaluationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node outcome: %w", err)
	}

	return outcome, nil
}

// ListNodeOutcomes lists all node outcomes of an evaluation
func (s *SQLiteStore) ListNodeOutcomes(ctx context.Context, evaluationID string) ([]*NodeOutcome, error) {
	query := `
		SELECT id, evaluation_id, kind, node_key, status, error_class, error_message, restarts, recorded_at
		FROM node_outcomes
		WHERE evaluation_id = ?
		ORDER BY node_key ASC
	`
	return s.queryNodeOutcomes(ctx, query, evaluationID)
}

// ListFailedNodes lists the failed node outcomes of an evaluation
func (s *SQLiteStore) ListFailedNodes(ctx context.Context, evaluationID string) ([]*NodeOutcome, error) {
	query := `
		SELECT id, evaluation_id, kind, node_key, status, error_class, error_message, restarts, recorded_at
		FROM node_outcomes
		WHERE evaluation_id = ? AND status = 'failed'
		ORDER BY node_key ASC
	`
	return s.queryNodeOutcomes(ctx, query, evaluationID)
}

func (s *SQLiteStore) queryNodeOutcomes(ctx context.Context, query string, args ...any) ([]*NodeOutcome, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list node outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []*NodeOutcome{}
	for rows.Next() {
		outcome := &NodeOutcome{}
		err := rows.Scan(
			&outcome.ID,
			&outcome.EvaluationID,
			&outcome.Kind,
			&outcome.NodeKey,
			&outcome.Status,
			&outcome.ErrorClass,
			&outcome.ErrorMessage,
			&outcome.Restarts,
			&outcome.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node outcomes: %w", err)
	}

	return outcomes, nil
}

// AppendAnalysisEvent appends a diagnostic to the event log
func (s *SQLiteStore) AppendAnalysisEvent(ctx context.Context, event *AnalysisEvent) error {
	query := `
		INSERT INTO analysis_events (evaluation_id, severity, label, message, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.EvaluationID,
		event.Severity,
		event.Label,
		event.Message,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append analysis event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// ListAnalysisEvents retrieves diagnostics with optional filters and pagination
func (s *SQLiteStore) ListAnalysisEvents(ctx context.Context, evaluationID *string, severity *EventSeverity, limit, offset int) ([]*AnalysisEvent, error) {
	query := `
		SELECT id, evaluation_id, severity, label, message, timestamp
		FROM analysis_events
		WHERE (? IS NULL OR evaluation_id = ?)
		  AND (? IS NULL OR severity = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, evaluationID, evaluationID, severity, severity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis events: %w", err)
	}
	defer rows.Close()

	events := []*AnalysisEvent{}
	for rows.Next() {
		event := &AnalysisEvent{}
		err := rows.Scan(
			&event.ID,
			&event.EvaluationID,
			&event.Severity,
			&event.Label,
			&event.Message,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis events: %w", err)
	}

	return events, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
