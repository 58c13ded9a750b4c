package migrations

import "embed"

// FS contains embedded SQLite migrations for rank storage.
//
//go:embed *.sql
var FS embed.FS
