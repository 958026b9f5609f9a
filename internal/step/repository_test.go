package step

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the steps schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE steps (
			id TEXT PRIMARY KEY,
			website_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			action_kind TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			action_pattern INTEGER NOT NULL DEFAULT 0,
			execution_order INTEGER NOT NULL DEFAULT 100,
			selected_locator TEXT NOT NULL DEFAULT 'smart',
			locator_absolute TEXT,
			locator_short TEXT,
			locator_smart TEXT,
			after_wait_seconds REAL NOT NULL DEFAULT 0,
			execution_timeout_seconds REAL NOT NULL DEFAULT 30,
			retry_mode TEXT NOT NULL DEFAULT 'none',
			retry_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_steps_website ON steps(website_id, position);`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func fullStep(id, websiteID string, order int) Step {
	return Step{
		ID:                      id,
		WebsiteID:               websiteID,
		URL:                     "https://" + websiteID + "/form",
		Action:                  ActionJudge,
		Value:                   "{{expected}}",
		ActionPattern:           30,
		ExecutionOrder:          order,
		SelectedLocator:         LocatorShort,
		LocatorAbsolute:         "/html/body/form[1]/input[2]",
		LocatorShort:            `//*[@id="total"]`,
		LocatorSmart:            `//form/input[@id="total"]`,
		AfterWaitSeconds:        0.5,
		ExecutionTimeoutSeconds: 12.5,
		Retry:                   RetryPolicy{Mode: RetryCountBounded, Count: 2},
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	orig := mustCollection(t,
		fullStep("s3", "site-a", 300),
		fullStep("x1", "site-b", 100),
		fullStep("s1", "site-a", 100),
		Step{ID: "bare", WebsiteID: "site-a", Action: ActionChangeURL, SelectedLocator: LocatorNone, Value: "https://x"},
	)

	if err := repo.Save(ctx, orig); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := orig.All()
	// Retry mode is normalised on save.
	want[3].Retry.Mode = RetryNone
	if got := loaded.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestSQLiteRepository_Save_ReplacesContents(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Save(ctx, mustCollection(t, fullStep("s1", "site-a", 100), fullStep("s2", "site-a", 200))); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := repo.Save(ctx, mustCollection(t, fullStep("s2", "site-a", 200))); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := ids(loaded.All()); !reflect.DeepEqual(got, []string{"s2"}) {
		t.Errorf("after replace = %v, want [s2]", got)
	}
}

func TestSQLiteRepository_LoadByWebsiteID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Save(ctx, mustCollection(t,
		fullStep("a2", "site-a", 200),
		fullStep("b1", "site-b", 100),
		fullStep("a1", "site-a", 100),
	)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c, err := repo.LoadByWebsiteID(ctx, "site-a")
	if err != nil {
		t.Fatalf("LoadByWebsiteID: %v", err)
	}
	if got := ids(c.All()); !reflect.DeepEqual(got, []string{"a2", "a1"}) {
		t.Errorf("LoadByWebsiteID = %v, want [a2 a1]", got)
	}
}

func TestSQLiteRepository_LoadBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Save(ctx, mustCollection(t,
		fullStep("a1", "site-a", 100),
		fullStep("b1", "site-b", 100),
		fullStep("c1", "site-c", 100),
	)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c, err := repo.LoadBatch(ctx, []string{"site-a", "site-c"})
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if got := ids(c.All()); !reflect.DeepEqual(got, []string{"a1", "c1"}) {
		t.Errorf("LoadBatch = %v, want [a1 c1]", got)
	}

	empty, err := repo.LoadBatch(ctx, nil)
	if err != nil {
		t.Fatalf("LoadBatch(nil): %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("LoadBatch(nil) Len = %d, want 0", empty.Len())
	}
}

func TestSQLiteRepository_Save_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM steps").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	repo := NewSQLiteRepository(db)
	err = repo.Save(context.Background(), mustCollection(t, fullStep("s1", "site-a", 100)))
	if err == nil {
		t.Fatal("Save should fail when clearing fails")
	}
	if mErr := mock.ExpectationsWereMet(); mErr != nil {
		t.Errorf("unmet expectations: %v", mErr)
	}
}

func TestSQLiteRepository_Load_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM steps").WillReturnError(errors.New("no such table: steps"))

	repo := NewSQLiteRepository(db)
	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatal("Load should surface query errors")
	}
	if mErr := mock.ExpectationsWereMet(); mErr != nil {
		t.Errorf("unmet expectations: %v", mErr)
	}
}
