package vitrine

import "embed"

// MigrationsFS holds the SQL migrations for the postgres state backend.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
