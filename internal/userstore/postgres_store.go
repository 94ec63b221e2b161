package userstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/db"
)

// PostgresStore keeps records in the user_records table as JSON values.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*auth.User, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM user_records
		WHERE key = $1
	`, key).Scan(&raw)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: get %s: %w", key, err)
	}

	var u auth.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("userstore: decode %s: %w", key, err)
	}
	return &u, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, user *auth.User) error {
	if user == nil {
		return fmt.Errorf("userstore: nil user for %s", key)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("userstore: encode %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_records (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, data)
	return err
}
