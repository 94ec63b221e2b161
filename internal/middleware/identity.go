package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/userstore"
)

// Identity decodes the session principal into the live user record. The
// record is fetched on every request so level changes and deletions take
// effect immediately. A principal that cannot be resolved aborts the chain
// with an auth-domain error for RecoverFromAuthError to handle.
func Identity(store userstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := session.Current(c).PrincipalKey()
		if key == "" {
			c.Next()
			return
		}

		u, err := store.Get(c.Request.Context(), auth.UserKey(key))
		if err != nil {
			// No retries: a failed read is treated as a missing user.
			_ = c.Error(fmt.Errorf("%w: %s: %w", auth.ErrIdentityResolution, key, err))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), u))
		c.Next()
	}
}
