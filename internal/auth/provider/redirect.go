package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/site"
)

// Redirect is an OAuth/OIDC strategy: the challenge redirects to the remote
// provider and the callback completes the login.
type Redirect struct {
	name      string
	fields    resolver.FieldMap
	factory   ProviderFactory
	completer *Completer

	providers map[string]OAuthProvider // keyed by strategyKey
}

func NewRedirect(name string, fields resolver.FieldMap, factory ProviderFactory, completer *Completer) *Redirect {
	fields.Provider = name
	return &Redirect{
		name:      name,
		fields:    fields,
		factory:   factory,
		completer: completer,
		providers: make(map[string]OAuthProvider),
	}
}

func (r *Redirect) Name() string { return r.name }

func (r *Redirect) Kind() Kind { return KindRedirect }

func (r *Redirect) Register(ctx context.Context, s site.Site) error {
	key := strategyKey(r.name, s)
	if _, ok := r.providers[key]; ok {
		return nil
	}
	p, err := r.factory(ctx, s)
	if err != nil {
		return auth.NewConfigError("provider %s for site %s: %v", r.name, s.Slug, err)
	}
	r.providers[key] = p
	return nil
}

func (r *Redirect) MountRoutes(routes gin.IRoutes, s site.Site) {
	routes.GET(fmt.Sprintf("/_auth/%s", r.name), r.challenge(s))
	routes.GET(fmt.Sprintf("/_auth/%s/callback", r.name), r.callback(s))
}

func (r *Redirect) provider(s site.Site) (OAuthProvider, bool) {
	p, ok := r.providers[strategyKey(r.name, s)]
	return p, ok
}

func (r *Redirect) challenge(s site.Site) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := r.provider(s)
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		state := generateState(c, s)
		_, codeChallenge := generatePKCE(c, s)

		c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
	}
}

func (r *Redirect) callback(s site.Site) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := r.provider(s)
		if !ok {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		// The request still carries both cookies; clear them up front since
		// headers are frozen once a redirect is written.
		clearFlowCookie(c, s, stateCookieName)
		clearFlowCookie(c, s, pkceCookieName)

		if errParam := c.Query("error"); errParam != "" {
			logger.Warn("oauth callback returned error", map[string]any{
				"site":     s.Slug,
				"provider": r.name,
				"error":    errParam,
				"desc":     c.Query("error_description"),
			})
			r.completer.Fail(c, s, flashAuthFailed)
			return
		}

		if !validateState(c) {
			logger.Warn("oauth callback state mismatch", map[string]any{
				"site":     s.Slug,
				"provider": r.name,
			})
			r.completer.Fail(c, s, flashAuthFailed)
			return
		}

		code := c.Query("code")
		codeVerifier := getPKCEVerifier(c)
		if code == "" || codeVerifier == "" {
			logger.Warn("oauth callback missing code or verifier", map[string]any{
				"site":     s.Slug,
				"provider": r.name,
			})
			r.completer.Fail(c, s, flashAuthFailed)
			return
		}

		profile, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
		if err != nil {
			logger.Error("oauth code exchange failed", map[string]any{
				"site":     s.Slug,
				"provider": r.name,
				"error":    err.Error(),
			})
			r.completer.Fail(c, s, flashAuthFailed)
			return
		}

		r.completer.Complete(c, s, r.fields, profile)
	}
}
