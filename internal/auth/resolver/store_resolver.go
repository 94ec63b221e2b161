package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/site"
	"github.com/clay/amphora-auth/internal/userstore"
)

const reasonUserNotFound = "User not found"

// StoreResolver resolves profiles against the user store.
type StoreResolver struct {
	store userstore.Store
}

func NewStoreResolver(store userstore.Store) *StoreResolver {
	return &StoreResolver{store: store}
}

func (r *StoreResolver) Resolve(
	ctx context.Context,
	s site.Site,
	fields FieldMap,
	profile Profile,
	current *auth.User,
) Result {

	username := profile.Lookup(fields.Username)
	if username == "" {
		return Rejected(fmt.Sprintf("Provider hasn't given a username at %s", fields.Username))
	}

	key := auth.UserKey(auth.EncodeKey(username, fields.Provider))

	// Already authenticated: just grab the live record, no writes.
	if current != nil {
		u, err := r.store.Get(ctx, key)
		if err != nil {
			r.logMiss(s, fields.Provider, err)
			return Rejected(reasonUserNotFound)
		}
		return Authenticated(u)
	}

	name := profile.Lookup(fields.Name)
	imageURL := profile.Lookup(fields.ImageURL)

	u, err := r.store.Get(ctx, key)
	switch {
	case err == nil:
		// Only fill fields that are still empty; a name edited by an
		// administrator and the auth level always win.
		u.Backfill(name, imageURL)
	case errors.Is(err, auth.ErrUserNotFound) && s.Enroll:
		u = &auth.User{
			Username: strings.ToLower(username),
			Provider: fields.Provider,
			Name:     name,
			ImageURL: imageURL,
		}
		logger.Info("enrolling user", map[string]any{
			"site":     s.Slug,
			"provider": fields.Provider,
			"username": username,
		})
	default:
		r.logMiss(s, fields.Provider, err)
		return Rejected(reasonUserNotFound)
	}

	if err := r.store.Put(ctx, key, u); err != nil {
		return Failed(fmt.Errorf("resolver: persist %s user: %w", fields.Provider, err))
	}

	return Authenticated(u)
}

func (r *StoreResolver) logMiss(s site.Site, provider string, err error) {
	fields := map[string]any{
		"site":     s.Slug,
		"provider": provider,
		"error":    err.Error(),
	}
	if errors.Is(err, auth.ErrUserNotFound) {
		logger.Info("login for unknown user", fields)
		return
	}
	logger.Error("user lookup failed", fields)
}
