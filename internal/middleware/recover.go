package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/metrics"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
)

// RecoverFromAuthError wraps the site pipeline. A user with an active
// session may be removed by an administrator; instead of failing every
// request, any auth-domain error logs the session out.
func RecoverFromAuthError(s site.Site, sessions *session.Manager, m metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		m = metrics.Noop{}
	}
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			if !auth.IsAuthDomain(e.Err) {
				continue
			}
			logger.Warn("forcing logout", map[string]any{
				"site":  s.Slug,
				"path":  c.Request.URL.Path,
				"error": e.Err.Error(),
			})
			m.IncForcedLogout(s.Slug)
			if !c.Writer.Written() {
				Logout(c, s, sessions)
			}
			return
		}
	}
}

// Logout clears the session principal and sends the user to the login page.
// Editing flows cannot resume without logging in, so the original page is
// not the target.
func Logout(c *gin.Context, s site.Site, sessions *session.Manager) {
	c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), nil))
	st := session.Current(c).WithoutPrincipal()
	if err := sessions.Rotate(c, st); err != nil {
		logger.Error("session save failed", map[string]any{
			"site":  s.Slug,
			"error": err.Error(),
		})
	}
	c.Redirect(http.StatusFound, s.LoginURL())
	c.Abort()
}
