// Package migrations embeds the registry schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
