package step

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository persists step collections.
// The collection is loaded and saved as a whole; insertion order is kept.
type Repository interface {
	// Load returns every stored step.
	Load(ctx context.Context) (*Collection, error)

	// Save replaces the stored steps with the collection's contents.
	Save(ctx context.Context, c *Collection) error

	// LoadByWebsiteID returns a collection holding one website's steps.
	LoadByWebsiteID(ctx context.Context, websiteID string) (*Collection, error)

	// LoadBatch returns a collection holding the steps of several websites.
	LoadBatch(ctx context.Context, websiteIDs []string) (*Collection, error)
}

// stepColumns is the SELECT column list for step queries.
const stepColumns = `id, website_id, url, action_kind, value, action_pattern, execution_order,
			selected_locator, locator_absolute, locator_short, locator_smart,
			after_wait_seconds, execution_timeout_seconds, retry_mode, retry_count`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load retrieves all steps in stored position order.
func (r *SQLiteRepository) Load(ctx context.Context) (*Collection, error) {
	query := `SELECT ` + stepColumns + ` FROM steps ORDER BY position`
	return r.queryCollection(ctx, query)
}

// LoadByWebsiteID retrieves one website's steps in stored position order.
func (r *SQLiteRepository) LoadByWebsiteID(ctx context.Context, websiteID string) (*Collection, error) {
	query := `SELECT ` + stepColumns + ` FROM steps WHERE website_id = ? ORDER BY position`
	return r.queryCollection(ctx, query, websiteID)
}

// LoadBatch retrieves the steps of several websites in one query.
func (r *SQLiteRepository) LoadBatch(ctx context.Context, websiteIDs []string) (*Collection, error) {
	if len(websiteIDs) == 0 {
		return NewCollection()
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(websiteIDs)), ", ")
	query := `SELECT ` + stepColumns + ` FROM steps WHERE website_id IN (` + placeholders + `) ORDER BY position`

	args := make([]any, len(websiteIDs))
	for i, id := range websiteIDs {
		args[i] = id
	}
	return r.queryCollection(ctx, query, args...)
}

// Save replaces every stored step inside a single transaction.
// Position records the collection's insertion order.
func (r *SQLiteRepository) Save(ctx context.Context, c *Collection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM steps`); err != nil {
		return fmt.Errorf("clearing steps: %w", err)
	}

	query := `
		INSERT INTO steps (
			id, website_id, position, url, action_kind, value, action_pattern, execution_order,
			selected_locator, locator_absolute, locator_short, locator_smart,
			after_wait_seconds, execution_timeout_seconds, retry_mode, retry_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for pos, s := range c.All() {
		retryMode := s.Retry.Mode
		if retryMode == "" {
			retryMode = RetryNone
		}
		_, err := stmt.ExecContext(ctx,
			s.ID,
			s.WebsiteID,
			pos,
			s.URL,
			string(s.Action),
			s.Value,
			s.ActionPattern,
			s.ExecutionOrder,
			string(s.SelectedLocator),
			nullableString(s.LocatorAbsolute),
			nullableString(s.LocatorShort),
			nullableString(s.LocatorSmart),
			s.AfterWaitSeconds,
			s.ExecutionTimeoutSeconds,
			string(retryMode),
			s.Retry.Count,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting step %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing steps: %w", err)
	}
	return nil
}

// queryCollection executes a query and builds a collection from the rows.
func (r *SQLiteRepository) queryCollection(ctx context.Context, query string, args ...any) (*Collection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	c, _ := NewCollection() //nolint:errcheck // empty collection cannot fail
	for rows.Next() {
		s, scanErr := scanStep(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning step: %w", scanErr)
		}
		if _, addErr := c.Add(s); addErr != nil {
			return nil, addErr
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating steps: %w", err)
	}
	return c, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStep(scanner rowScanner) (Step, error) {
	var s Step
	var action, locator, retryMode string
	var absolute, short, smart sql.NullString

	err := scanner.Scan(
		&s.ID,
		&s.WebsiteID,
		&s.URL,
		&action,
		&s.Value,
		&s.ActionPattern,
		&s.ExecutionOrder,
		&locator,
		&absolute,
		&short,
		&smart,
		&s.AfterWaitSeconds,
		&s.ExecutionTimeoutSeconds,
		&retryMode,
		&s.Retry.Count,
	)
	if err != nil {
		return Step{}, err
	}

	s.Action = ActionKind(action)
	s.SelectedLocator = LocatorStrategy(locator)
	s.Retry.Mode = RetryMode(retryMode)
	s.LocatorAbsolute = absolute.String
	s.LocatorShort = short.String
	s.LocatorSmart = smart.String
	return s, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
