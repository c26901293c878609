// Package migrations embeds the SQL migration files for the AI session
// store so the binary stays self-contained regardless of the working
// directory it's launched from.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
