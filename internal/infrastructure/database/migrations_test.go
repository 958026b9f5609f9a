package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/nerrad567/autofill-core/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"sql/20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"sql/20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"sql/20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
		"sql/README.md":                        {Data: []byte("ignored")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return count == 1
}

func TestMigrator_Up(t *testing.T) {
	db := openTestDB(t)
	m := db.NewMigrator(testMigrations(), "sql")
	ctx := context.Background()

	n, err := m.Up(ctx)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Up() applied %d, want 2", n)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("expected widgets and gadgets tables")
	}

	// Idempotent.
	n, err = m.Up(ctx)
	if err != nil {
		t.Fatalf("second Up() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Up() applied %d, want 0", n)
	}
}

func TestMigrator_Down(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	delete(fsys, "sql/20260102_000000_gadgets.up.sql")
	m := db.NewMigrator(fsys, "sql")

	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if err := m.Down(ctx); err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if tableExists(t, db, "widgets") {
		t.Error("widgets should have been dropped")
	}

	applied, pending, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(applied) != 0 || len(pending) != 1 {
		t.Errorf("Status() = %d applied, %d pending; want 0, 1", len(applied), len(pending))
	}

	// Nothing left to roll back.
	if err := m.Down(ctx); err != nil {
		t.Errorf("Down() with nothing applied error = %v", err)
	}
}

func TestMigrator_DownWithoutDownSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := db.NewMigrator(testMigrations(), "sql")

	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	// gadgets is latest and ships no down file.
	if err := m.Down(ctx); err == nil {
		t.Fatal("Down() expected error for migration without down SQL")
	}
}

func TestMigrator_FailedMigrationKeepsEarlier(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["sql/20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE ;")}
	m := db.NewMigrator(fsys, "sql")

	n, err := m.Up(ctx)
	if err == nil {
		t.Fatal("Up() expected error for broken migration")
	}
	if n != 2 {
		t.Errorf("Up() applied %d before failure, want 2", n)
	}
	if !tableExists(t, db, "gadgets") {
		t.Error("earlier migrations should stay committed")
	}
}

func TestMigrator_NilFS(t *testing.T) {
	db := openTestDB(t)
	n, err := db.NewMigrator(nil, "").Up(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Up() with nil fs = %d, %v; want 0, nil", n, err)
	}
}

func TestMigrator_EmbeddedSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := db.NewMigrator(migrations.FS, ".")

	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	for _, table := range []string{"steps", "runs", "audit_logs"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing after embedded migrations", table)
		}
	}

	// Every embedded migration rolls back cleanly.
	for range 3 {
		if err := m.Down(ctx); err != nil {
			t.Fatalf("Down() error = %v", err)
		}
	}
	if tableExists(t, db, "steps") || tableExists(t, db, "runs") || tableExists(t, db, "audit_logs") {
		t.Error("embedded tables should be dropped after rolling back")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"valid up migration", "20260301_090000_steps.up.sql", "20260301_090000", true, true},
		{"valid down migration", "20260301_090000_steps.down.sql", "20260301_090000", false, true},
		{"not sql file", "readme.txt", "", false, false},
		{"missing direction", "20260301_090000_steps.sql", "", false, false},
		{"invalid format", "invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("got (%q, %v), want (%q, %v)", version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_090000_steps.up.sql", "steps"},
		{"20260301_091500_runs.down.sql", "runs"},
		{"20260301_091500_add_owner_index.up.sql", "add_owner_index"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
