package migrations

import "embed"

// FS holds the schema for both dialects, one directory each.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
