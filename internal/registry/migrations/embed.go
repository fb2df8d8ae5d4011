// Package migrations embeds the registry's goose SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
