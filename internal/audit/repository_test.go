package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nerrad567/autofill-core/internal/infrastructure/config"
	"github.com/nerrad567/autofill-core/internal/infrastructure/database"
	"github.com/nerrad567/autofill-core/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if _, err := db.NewMigrator(migrations.FS, ".").Up(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecord_GeneratesIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)
	repo.now = func() time.Time { return fixed }

	e := &Entry{
		Action:     ActionCreate,
		EntityType: EntityStep,
		EntityID:   "step-1",
		WebsiteID:  "shop",
		Source:     SourceAPI,
		Details:    map[string]any{"action_kind": "click"},
	}
	if err := repo.Record(context.Background(), e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(e.ID) != len("aud-")+8 {
		t.Errorf("ID = %q", e.ID)
	}

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List() = %+v", res)
	}
	got := res.Entries[0]
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixed)
	}
	if got.WebsiteID != "shop" || got.EntityID != "step-1" || got.Details["action_kind"] != "click" {
		t.Errorf("entry = %+v", got)
	}
}

func TestRecord_OptionalFieldsStayEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, &Entry{Action: ActionRun, EntityType: EntityRun, Source: SourceMQTT}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := res.Entries[0]
	if got.EntityID != "" || got.WebsiteID != "" || got.Details != nil {
		t.Errorf("entry = %+v", got)
	}
}

func TestList_FiltersAndPages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Action: ActionCreate, EntityType: EntityStep, WebsiteID: "shop"},
		{Action: ActionUpdate, EntityType: EntityStep, WebsiteID: "shop"},
		{Action: ActionRun, EntityType: EntityRun, WebsiteID: "shop"},
		{Action: ActionCreate, EntityType: EntityStep, WebsiteID: "bank"},
	}
	for i := range entries {
		entries[i].Source = SourceAPI
		entries[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Record(ctx, &entries[i]); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
		total   int
	}{
		{"all newest first", Filter{}, []string{entries[3].ID, entries[2].ID, entries[1].ID, entries[0].ID}, 4},
		{"by website", Filter{WebsiteID: "shop"}, []string{entries[2].ID, entries[1].ID, entries[0].ID}, 3},
		{"by action", Filter{Action: ActionCreate}, []string{entries[3].ID, entries[0].ID}, 2},
		{"by entity and website", Filter{EntityType: EntityStep, WebsiteID: "shop"}, []string{entries[1].ID, entries[0].ID}, 2},
		{"paged", Filter{Limit: 2, Offset: 1}, []string{entries[2].ID, entries[1].ID}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.total {
				t.Errorf("Total = %d, want %d", res.Total, tt.total)
			}
			if len(res.Entries) != len(tt.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(res.Entries), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if res.Entries[i].ID != id {
					t.Errorf("entry %d = %s, want %s", i, res.Entries[i].ID, id)
				}
			}
		})
	}
}

func TestList_ClampsPaging(t *testing.T) {
	repo := newTestRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 10000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxLimit || res.Offset != 0 {
		t.Errorf("limit/offset = %d/%d", res.Limit, res.Offset)
	}
	if res.Entries == nil {
		t.Error("Entries should be empty, not nil")
	}

	res, err = repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != defaultLimit {
		t.Errorf("default limit = %d", res.Limit)
	}
}

func TestRecord_WrapsDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errors.New("disk I/O error"))

	repo := NewSQLiteRepository(db)
	err = repo.Record(context.Background(), &Entry{Action: ActionDelete, EntityType: EntityStep, Source: SourceAPI})
	if err == nil || err.Error() != "inserting audit entry: disk I/O error" {
		t.Errorf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestList_WrapsCountError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WithArgs("shop").WillReturnError(errors.New("locked"))

	_, err = NewSQLiteRepository(db).List(context.Background(), Filter{WebsiteID: "shop"})
	if err == nil || err.Error() != "counting audit entries: locked" {
		t.Errorf("List() error = %v", err)
	}
}
