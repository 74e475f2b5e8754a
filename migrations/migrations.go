// Package migrations embeds the schema: episodes, semantic_cache and turn_audit.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
