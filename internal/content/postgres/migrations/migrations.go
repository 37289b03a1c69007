// Package migrations embeds the schema migrations for every table
// internal/content/postgres.Store addresses, run once at startup by
// pkg/database.RunMigrations. Grounded on
// services/user/migrations (embed.FS + *.up.sql layout).
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
