package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	// All application state lives in one schemaless documents table: the
	// store layer owns the shape of each collection's documents. Ids are
	// text rather than UUID so callers can use composite natural keys.
	`CREATE TABLE IF NOT EXISTS documents (
		collection VARCHAR(64) NOT NULL,
		id VARCHAR(128) NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING gin (data jsonb_path_ops)`,

	// Credential and invitation lookups during sign-in are by email.
	`CREATE INDEX IF NOT EXISTS idx_documents_email ON documents(collection, (data->>'email'))`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
