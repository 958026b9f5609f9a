// Package database provides SQLite connectivity and schema migrations for
// the step and run-result stores.
//
// Open applies the busy timeout and WAL pragmas and pins the pool to one
// connection. The special path ":memory:" opens a throwaway database.
//
// Migrations are *.up.sql / *.down.sql pairs named
// YYYYMMDD_HHMMSS_description and are read from any fs.FS:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if _, err := db.NewMigrator(migrations.FS, ".").Up(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns must be nullable or carry a default.
package database
