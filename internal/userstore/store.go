// Package userstore persists user records under their identity key.
package userstore

import (
	"context"

	"github.com/clay/amphora-auth/internal/auth"
)

// Store is the user store adapter. Get returns auth.ErrUserNotFound when no
// record exists for key.
type Store interface {
	Get(ctx context.Context, key string) (*auth.User, error)
	Put(ctx context.Context, key string, user *auth.User) error
}
