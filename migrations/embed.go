// Package migrations embeds the SQL schema for the step and run tables so
// the binary can migrate a fresh database without files on disk.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file at its root.
//
//go:embed *.sql
var FS embed.FS
