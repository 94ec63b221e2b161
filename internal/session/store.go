package session

import (
	"context"
	"time"
)

// Session is the persisted session blob. It holds an identity key pointer,
// never the user record itself.
type Session struct {
	ID           string    `json:"id"`
	PrincipalKey string    `json:"principal,omitempty"`
	ReturnTo     string    `json:"returnTo,omitempty"`
	Flash        []string  `json:"flash,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Store defines how sessions are stored and retrieved.
// Get returns nil, nil when the session does not exist.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}
