package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: index revocations by expiry for the periodic purge.
	`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires
	     ON revoked_tokens(expires_at)`,
}

// Migrate creates the schema and applies pending migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
