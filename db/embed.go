// Package db bundles the SQL migrations into the binary.
package db

import "embed"

// Migrations holds the goose migration files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
