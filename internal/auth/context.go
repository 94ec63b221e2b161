package auth

import "context"

// unexported, collision-proof context key
type userContextKeyType struct{}

var userKey = userContextKeyType{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext extracts the authenticated user from ctx.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}
