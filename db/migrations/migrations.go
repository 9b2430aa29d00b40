// Package migrations embeds the SQL schema migrations applied by the
// `firmlens migrate` subcommand.
package migrations

import "embed"

// FS holds the goose migration files.
//
//go:embed *.sql
var FS embed.FS
