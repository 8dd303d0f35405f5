// Package migrations embeds the goose SQL migrations for the Postgres state
// store, grounded on the teacher's shared/db.PostgresRepositoryManager
// wiring (goose.SetBaseFS(migrations.Migrations) + goose.UpContext).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
