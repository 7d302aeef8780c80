// Package migration embeds the SQL schema migrations of the service.
package migration

import "embed"

// FS holds the *.sql migration files in golang-migrate naming.
//
//go:embed *.sql
var FS embed.FS
