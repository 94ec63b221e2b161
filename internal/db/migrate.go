package db

import (
	"context"
	"database/sql"
)

const userRecordsMigration = `
CREATE TABLE IF NOT EXISTS user_records (
    key text PRIMARY KEY,
    value jsonb NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);
`

// RunUserRecordsMigration creates the key-value table backing user records.
func RunUserRecordsMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, userRecordsMigration)
	return err
}
