package migrations

import "embed"

// Files holds the claims database schema, applied at service startup.
//
//go:embed *.sql
var Files embed.FS
