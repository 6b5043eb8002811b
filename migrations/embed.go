// Package migrations embeds the gateway's SQL migration files into the
// binary so schema creation needs nothing on the filesystem.
package migrations

import (
	"embed"

	"github.com/platefront/edge-gateway/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
