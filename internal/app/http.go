package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/handler"
	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/auth/provider/google"
	"github.com/clay/amphora-auth/internal/auth/provider/keycloak"
	"github.com/clay/amphora-auth/internal/auth/provider/ldap"
	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/config"
	"github.com/clay/amphora-auth/internal/metrics"
	"github.com/clay/amphora-auth/internal/middleware"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
	"github.com/clay/amphora-auth/internal/userstore"
)

// Headers forwarded to the content host. Incoming values are always
// stripped so clients cannot forge them.
const (
	HeaderUsername = "X-Auth-Username"
	HeaderProvider = "X-Auth-Provider"
	HeaderLevel    = "X-Auth-Level"
)

// Gateway holds what every site engine shares.
type Gateway struct {
	Sessions *session.Manager
	Users    userstore.Store
	Registry *provider.Registry
	Metrics  metrics.Metrics
	Upstream http.Handler
}

// NewGateway builds the shared collaborators from config and infra.
func NewGateway(cfg config.Config, infra *Infra, m metrics.Metrics) (*Gateway, error) {
	sessions := session.NewManager(
		infra.Sessions,
		cfg.SessionSecret,
		session.CookieOptions{},
	)

	completer := provider.NewCompleter(
		resolver.NewStoreResolver(infra.Users),
		sessions,
		m,
	)

	deps := provider.Deps{
		Completer: completer,
		APIKey:    provider.NewAPIKey(cfg.AccessKey),
		Google:    googleFactory(cfg),
		Keycloak:  keycloakFactory(cfg),
	}

	if cfg.LDAP.URL != "" {
		dir, err := ldap.New(ldap.Config{
			URL:          cfg.LDAP.URL,
			BindDN:       cfg.LDAP.BindDN,
			BindPassword: cfg.LDAP.BindPassword,
			SearchBase:   cfg.LDAP.SearchBase,
			SearchFilter: cfg.LDAP.SearchFilter,
		})
		if err != nil {
			return nil, auth.NewConfigError("ldap: %v", err)
		}
		deps.Directory = dir
	}

	upstream, err := newUpstream(cfg.UpstreamURL)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		Sessions: sessions,
		Users:    infra.Users,
		Registry: provider.NewRegistry(deps),
		Metrics:  m,
		Upstream: upstream,
	}, nil
}

// SiteEngine builds the gin engine protecting one site. A configuration
// error means the site must not be served.
func (g *Gateway) SiteEngine(ctx context.Context, s site.Site) (*gin.Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	strategies, err := g.Registry.Setup(ctx, s)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())

	// handle de-authentication errors. This occurs when a user is logged in
	// and someone removes them as a user.
	engine.Use(middleware.RecoverFromAuthError(s, g.Sessions, g.Metrics))

	engine.Use(g.Sessions.Load())
	engine.Use(middleware.Identity(g.Users))
	engine.Use(middleware.Protect(s, g.Registry.APIKey(), g.Sessions, g.Metrics))

	routes := engine.Group(strings.TrimSuffix(s.Path, "/"))
	handler.NewHandler(s, g.Registry, strategies, g.Sessions, g.Users).RegisterRoutes(routes)

	engine.NoRoute(g.forward)

	return engine, nil
}

func (g *Gateway) forward(c *gin.Context) {
	h := c.Request.Header
	h.Del(HeaderUsername)
	h.Del(HeaderProvider)
	h.Del(HeaderLevel)
	if u, ok := auth.UserFromContext(c.Request.Context()); ok {
		h.Set(HeaderUsername, u.Username)
		h.Set(HeaderProvider, u.Provider)
		h.Set(HeaderLevel, string(u.AuthLevel))
	}
	g.Upstream.ServeHTTP(c.Writer, c.Request)
}

func newUpstream(raw string) (http.Handler, error) {
	if raw == "" {
		return http.NotFoundHandler(), nil
	}
	target, err := url.Parse(raw)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, auth.NewConfigError("bad UPSTREAM_URL %q", raw)
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		host := r.Host
		director(r)
		// the content host routes by the public host name
		r.Host = host
	}
	return proxy, nil
}

func googleFactory(cfg config.Config) provider.ProviderFactory {
	if cfg.GoogleClientID == "" {
		return nil
	}
	return func(ctx context.Context, s site.Site) (provider.OAuthProvider, error) {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, s.CallbackURL(provider.NameGoogle))
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func keycloakFactory(cfg config.Config) provider.ProviderFactory {
	if cfg.KeycloakIssuer == "" {
		return nil
	}
	return func(ctx context.Context, s site.Site) (provider.OAuthProvider, error) {
		p, err := keycloak.New(ctx, cfg.KeycloakIssuer, cfg.KeycloakClientID, s.CallbackURL(provider.NameKeycloak), cfg.KeycloakPublicBaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

type mountedSite struct {
	host    string
	path    string
	handler http.Handler
}

// hostRouter dispatches to the site whose host matches and whose path is
// the longest prefix of the request path.
type hostRouter struct {
	sites []mountedSite
}

func (h *hostRouter) add(s site.Site, handler http.Handler) error {
	path := strings.TrimSuffix(s.Path, "/")
	for _, m := range h.sites {
		if m.host == s.Host() && m.path == path {
			return auth.NewConfigError("site %q collides with another site on %s%s", s.Slug, m.host, m.path)
		}
	}
	h.sites = append(h.sites, mountedSite{host: s.Host(), path: path, handler: handler})
	sort.SliceStable(h.sites, func(i, j int) bool {
		return len(h.sites[i].path) > len(h.sites[j].path)
	})
	return nil
}

func (h *hostRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := strings.ToLower(r.Host)
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	for _, m := range h.sites {
		if m.host != host {
			continue
		}
		if m.path == "" || r.URL.Path == m.path || strings.HasPrefix(r.URL.Path, m.path+"/") {
			m.handler.ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func setupHTTP(ctx context.Context, cfg config.Config, infra *Infra, m metrics.Metrics) (http.Handler, error) {
	gw, err := NewGateway(cfg, infra, m)
	if err != nil {
		return nil, err
	}

	router := &hostRouter{}
	for _, s := range cfg.Sites {
		engine, err := gw.SiteEngine(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", s.Slug, err)
		}
		if err := router.add(s, engine); err != nil {
			return nil, err
		}
	}
	return router, nil
}
