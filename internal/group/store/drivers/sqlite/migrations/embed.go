// Package migrations embeds the group authority schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
