package provider

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/metrics"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
)

const flashAuthFailed = "Authentication failed"

// Completer finishes a login once a provider has vouched for a profile:
// it resolves the local user, writes the session and redirects.
type Completer struct {
	resolver resolver.Resolver
	sessions *session.Manager
	metrics  metrics.Metrics
}

func NewCompleter(r resolver.Resolver, sessions *session.Manager, m metrics.Metrics) *Completer {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Completer{
		resolver: r,
		sessions: sessions,
		metrics:  m,
	}
}

// Complete resolves profile and answers the request with a redirect: to the
// saved return-to url (or the site root) on success, to the login page with
// a flash message otherwise.
func (c *Completer) Complete(
	gc *gin.Context,
	s site.Site,
	fields resolver.FieldMap,
	profile resolver.Profile,
) {
	current, _ := auth.UserFromContext(gc.Request.Context())

	res := c.resolver.Resolve(gc.Request.Context(), s, fields, profile, current)
	c.metrics.IncLogin(s.Slug, fields.Provider, res.Outcome.String())

	switch res.Outcome {
	case resolver.OutcomeAuthenticated:
		returnTo, st := session.Current(gc).TakeReturnTo()
		st = st.WithPrincipal(res.User.Key())
		if err := c.sessions.Rotate(gc, st); err != nil {
			logger.Error("session save failed", map[string]any{
				"site":  s.Slug,
				"error": err.Error(),
			})
			c.Fail(gc, s, flashAuthFailed)
			return
		}

		logger.Info("login succeeded", map[string]any{
			"site":     s.Slug,
			"provider": fields.Provider,
			"username": res.User.Username,
			"ip":       gc.ClientIP(),
		})

		gc.Redirect(http.StatusFound, localReturnTo(s, returnTo))

	case resolver.OutcomeRejected:
		logger.Warn("login rejected", map[string]any{
			"site":     s.Slug,
			"provider": fields.Provider,
			"reason":   res.Reason,
		})
		c.Fail(gc, s, res.Reason)

	default:
		logger.Error("login failed", map[string]any{
			"site":     s.Slug,
			"provider": fields.Provider,
			"error":    errString(res.Err),
		})
		c.Fail(gc, s, flashAuthFailed)
	}
}

// Fail sends the user back to the login page with a visible error.
// The return-to target is kept for the next attempt.
func (c *Completer) Fail(gc *gin.Context, s site.Site, msg string) {
	st := session.Current(gc).WithFlash(msg)
	if err := c.sessions.Save(gc, st); err != nil {
		logger.Error("session save failed", map[string]any{
			"site":  s.Slug,
			"error": err.Error(),
		})
	}
	gc.Redirect(http.StatusFound, s.LoginURL())
}

// localReturnTo keeps a saved return-to only when it is a path on the site.
// Anything that could leave the host falls back to the site root: a
// request for "//evil.example/x" is saved with that exact request-uri, and
// browsers read it as a scheme-relative url.
func localReturnTo(s site.Site, target string) string {
	if !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, `/\`) ||
		strings.ContainsAny(target, "\t\r\n") {
		return s.PathOrBase()
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return s.PathOrBase()
	}
	if base := strings.TrimSuffix(s.Path, "/"); base != "" &&
		u.Path != base && !strings.HasPrefix(u.Path, base+"/") {
		return s.PathOrBase()
	}
	return target
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
