// Package migrations embeds the SQLite schema migrations for the todo store.
package migrations

import "embed"

// FS contains embedded SQLite migrations for todo storage.
//
//go:embed *.sql
var FS embed.FS
