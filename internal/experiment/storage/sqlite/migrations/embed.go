// Package migrations contains embedded SQL migrations for the SQLite store.
package migrations

import "embed"

//go:embed experiments/*.sql
var ExperimentsFS embed.FS
