package migrations

import "embed"

// FS contains embedded SQLite migrations for match history.
//
//go:embed *.sql
var FS embed.FS
