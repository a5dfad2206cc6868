// Package migrations carries the SQL schema. A blank import hands the
// embedded files to the database package for Migrate and Rollback.
package migrations

import (
	"embed"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS, database.MigrationsDir = files, "."
}
