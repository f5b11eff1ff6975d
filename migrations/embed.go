// Package migrations compiles the *.sql schema files into the binary
// and hands them to the database package from init, so a blank import
// is all a daemon needs to carry its schema.
package migrations

import (
	"embed"

	"github.com/itmuckel/ardour/internal/infrastructure/database"
)

//go:embed *.sql
var schemaFS embed.FS

func init() {
	database.MigrationsFS = schemaFS
	database.MigrationsDir = "."
}
