// Package migrations embeds the schema files applied by the SQL-backed stores.
package migrations

import "embed"

// FS holds sqlite/ and postgres/ subdirectories of NNN_name.sql files
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
