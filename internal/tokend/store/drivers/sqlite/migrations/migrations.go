// Package migrations embeds the sqlite schema migrations so binaries can
// migrate themselves on startup without shipping loose .sql files.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
