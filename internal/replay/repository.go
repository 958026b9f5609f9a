package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ResultRepository persists run results.
type ResultRepository interface {
	// Save inserts or replaces a run result.
	Save(ctx context.Context, r *RunResult) error

	// Get retrieves a run by ID.
	Get(ctx context.Context, id string) (*RunResult, error)

	// LatestByOwner returns the most recently started run of an owner.
	LatestByOwner(ctx context.Context, ownerID string) (*RunResult, error)

	// HistoryByOwner returns an owner's runs, newest first.
	HistoryByOwner(ctx context.Context, ownerID string, limit int) ([]RunResult, error)

	// ListByWebsite returns a website's runs, newest first.
	ListByWebsite(ctx context.Context, websiteID string, limit int) ([]RunResult, error)
}

// History limits. A limit above MaxHistoryLimit is capped.
const (
	defaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const runColumns = `id, website_id, owner_id, status, total_steps, current_step_index,
			last_executed_url, start_from, end_to, message, failed_step_id`

// SQLiteResultRepository implements ResultRepository using SQLite.
type SQLiteResultRepository struct {
	db *sql.DB
}

// NewSQLiteResultRepository creates a new SQLite-backed result repository.
func NewSQLiteResultRepository(db *sql.DB) *SQLiteResultRepository {
	return &SQLiteResultRepository{db: db}
}

// Save upserts a run result.
func (r *SQLiteResultRepository) Save(ctx context.Context, run *RunResult) error {
	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total_steps = excluded.total_steps,
			current_step_index = excluded.current_step_index,
			last_executed_url = excluded.last_executed_url,
			end_to = excluded.end_to,
			message = excluded.message,
			failed_step_id = excluded.failed_step_id`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.WebsiteID,
		nullableString(run.OwnerID),
		string(run.Status),
		run.TotalSteps,
		run.CurrentStepIndex,
		nullableString(run.LastExecutedURL),
		run.StartFrom.UTC().Format(timeLayout),
		nullableTime(run.EndTo),
		nullableString(run.Message),
		nullableString(run.FailedStepID),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (r *SQLiteResultRepository) Get(ctx context.Context, id string) (*RunResult, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// LatestByOwner returns the owner's most recent run.
func (r *SQLiteResultRepository) LatestByOwner(ctx context.Context, ownerID string) (*RunResult, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE owner_id = ?
		ORDER BY start_from DESC, rowid DESC LIMIT 1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return run, nil
}

// HistoryByOwner returns the owner's runs, newest first.
func (r *SQLiteResultRepository) HistoryByOwner(ctx context.Context, ownerID string, limit int) ([]RunResult, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE owner_id = ?
		ORDER BY start_from DESC, rowid DESC LIMIT ?`
	return r.queryRuns(ctx, query, ownerID, clampLimit(limit))
}

// ListByWebsite returns the website's runs, newest first.
func (r *SQLiteResultRepository) ListByWebsite(ctx context.Context, websiteID string, limit int) ([]RunResult, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE website_id = ?
		ORDER BY start_from DESC, rowid DESC LIMIT ?`
	return r.queryRuns(ctx, query, websiteID, clampLimit(limit))
}

func (r *SQLiteResultRepository) queryRuns(ctx context.Context, query string, args ...any) ([]RunResult, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunResult
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*RunResult, error) {
	var run RunResult
	var status, startFrom string
	var ownerID, lastURL, endTo, message, failedStep sql.NullString

	err := scanner.Scan(
		&run.ID,
		&run.WebsiteID,
		&ownerID,
		&status,
		&run.TotalSteps,
		&run.CurrentStepIndex,
		&lastURL,
		&startFrom,
		&endTo,
		&message,
		&failedStep,
	)
	if err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.OwnerID = ownerID.String
	run.LastExecutedURL = lastURL.String
	run.Message = message.String
	run.FailedStepID = failedStep.String

	if t, parseErr := time.Parse(timeLayout, startFrom); parseErr == nil {
		run.StartFrom = t
	}
	if endTo.Valid {
		if t, parseErr := time.Parse(timeLayout, endTo.String); parseErr == nil {
			run.EndTo = &t
		}
	}
	return &run, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
