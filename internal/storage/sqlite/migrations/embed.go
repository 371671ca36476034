package migrations

import "embed"

// FS contains embedded SQLite migrations for attendance storage.
//
//go:embed *.sql
var FS embed.FS
