package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/metrics"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
)

// EditFlag is the query parameter that puts a page in edit mode.
const EditFlag = "edit"

// Decision is the outcome of route protection for one request.
type Decision int

const (
	Allow Decision = iota
	ChallengeAPIKey
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case ChallengeAPIKey:
		return "apikey"
	case RedirectToLogin:
		return "redirect"
	default:
		return "unknown"
	}
}

// IsProtected reports whether a request needs an authenticated user:
// anything but a plain GET, or a GET asking for edit mode.
func IsProtected(r *http.Request) bool {
	return r.URL.Query().Get(EditFlag) != "" || r.Method != http.MethodGet
}

// Decide classifies a request. authenticated tells whether the session
// already resolved to a user.
func Decide(r *http.Request, authenticated bool) Decision {
	switch {
	case r.Method == http.MethodOptions || !IsProtected(r):
		return Allow
	case authenticated:
		return Allow
	case r.Header.Get("Authorization") != "":
		return ChallengeAPIKey
	default:
		return RedirectToLogin
	}
}

// Protect guards the site's routes. It must run after Identity.
func Protect(
	s site.Site,
	apiKey *provider.APIKey,
	sessions *session.Manager,
	m metrics.Metrics,
) gin.HandlerFunc {
	if m == nil {
		m = metrics.Noop{}
	}
	return func(c *gin.Context) {
		_, authenticated := auth.UserFromContext(c.Request.Context())
		decision := Decide(c.Request, authenticated)
		m.IncDecision(s.Slug, decision.String())

		switch decision {
		case Allow:
			c.Next()

		case ChallengeAPIKey:
			u, err := apiKey.Authenticate(c.GetHeader("Authorization"))
			if err != nil {
				fields := map[string]any{
					"site":   s.Slug,
					"path":   c.Request.URL.Path,
					"ip":     c.ClientIP(),
					"reason": err.Error(),
				}
				var authErr *auth.AuthenticationError
				if errors.As(err, &authErr) {
					fields["token"] = authErr.Token
				}
				logger.Warn("api key rejected", fields)
				Unauthorized(c)
				return
			}
			c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), u))
			c.Next()

		case RedirectToLogin:
			// redirect to this page after logging in
			st := session.Current(c).WithReturnTo(c.Request.URL.RequestURI())
			if err := sessions.Save(c, st); err != nil {
				logger.Error("session save failed", map[string]any{
					"site":  s.Slug,
					"error": err.Error(),
				})
			}
			c.Redirect(http.StatusFound, s.LoginURL())
			c.Abort()
		}
	}
}
