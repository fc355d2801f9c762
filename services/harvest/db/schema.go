package db

import (
	"database/sql"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Open opens (or creates) the result database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(Schema); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
