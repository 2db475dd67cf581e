// Package migrations holds the embedded goose SQL migrations for the
// medicus database schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
