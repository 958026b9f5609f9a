package replay

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			website_id TEXT NOT NULL,
			owner_id TEXT,
			status TEXT NOT NULL,
			total_steps INTEGER NOT NULL,
			current_step_index INTEGER NOT NULL DEFAULT 0,
			last_executed_url TEXT,
			start_from TEXT NOT NULL,
			end_to TEXT,
			message TEXT,
			failed_step_id TEXT
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(id, owner string, start time.Time) *RunResult {
	r := NewRunResult("site-a", owner, 3, start)
	r.ID = id
	return r
}

func TestSQLiteResultRepository_SaveAndGet(t *testing.T) {
	repo := NewSQLiteResultRepository(setupTestDB(t))
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 8, 0, 0, 123456000, time.UTC)

	r := testRun("run-1", "vars-1", start)
	if err := repo.Save(ctx, r); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Upsert progress and terminal state.
	_ = r.Advance("https://site-a/1")
	_ = r.Fail(start.Add(2*time.Second), "element not found", "s2")
	if err := repo.Save(ctx, r); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := repo.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusFailed || got.CurrentStepIndex != 1 || got.TotalSteps != 3 {
		t.Errorf("got %+v", got)
	}
	if got.Message != "element not found" || got.FailedStepID != "s2" || got.OwnerID != "vars-1" {
		t.Errorf("got %+v", got)
	}
	if got.LastExecutedURL != "https://site-a/1" {
		t.Errorf("LastExecutedURL = %q", got.LastExecutedURL)
	}
	if !got.StartFrom.Equal(start) {
		t.Errorf("StartFrom = %v, want %v", got.StartFrom, start)
	}
	if got.EndTo == nil || !got.EndTo.Equal(start.Add(2*time.Second)) {
		t.Errorf("EndTo = %v", got.EndTo)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Get(missing) = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteResultRepository_OwnerHistory(t *testing.T) {
	repo := NewSQLiteResultRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		if err := repo.Save(ctx, testRun(id, "vars-1", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := repo.Save(ctx, testRun("other", "vars-2", base.Add(time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}

	latest, err := repo.LatestByOwner(ctx, "vars-1")
	if err != nil {
		t.Fatalf("LatestByOwner: %v", err)
	}
	if latest.ID != "r3" {
		t.Errorf("latest = %s, want r3", latest.ID)
	}

	history, err := repo.HistoryByOwner(ctx, "vars-1", 2)
	if err != nil {
		t.Fatalf("HistoryByOwner: %v", err)
	}
	if len(history) != 2 || history[0].ID != "r3" || history[1].ID != "r2" {
		t.Errorf("history = %+v", history)
	}

	byWebsite, err := repo.ListByWebsite(ctx, "site-a", 0)
	if err != nil {
		t.Fatalf("ListByWebsite: %v", err)
	}
	if len(byWebsite) != 4 || byWebsite[0].ID != "other" {
		t.Errorf("ListByWebsite returned %d runs", len(byWebsite))
	}

	if _, err := repo.LatestByOwner(ctx, "nobody"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestByOwner(nobody) = %v", err)
	}
}

func TestSQLiteResultRepository_SaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO runs").WillReturnError(errors.New("database is locked"))

	repo := NewSQLiteResultRepository(db)
	if err := repo.Save(context.Background(), testRun("r1", "", time.Now())); err == nil {
		t.Fatal("Save should surface exec errors")
	}
	if mErr := mock.ExpectationsWereMet(); mErr != nil {
		t.Errorf("unmet expectations: %v", mErr)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: defaultHistoryLimit, -3: defaultHistoryLimit, 5: 5, 10000: MaxHistoryLimit}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
