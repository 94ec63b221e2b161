package provider

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/site"
)

// Field maps of the built-in providers.
var (
	GoogleFields = resolver.FieldMap{
		Username: "email",
		Name:     "name",
		ImageURL: "picture",
	}
	KeycloakFields = resolver.FieldMap{
		Username: "preferred_username",
		Name:     "name",
		ImageURL: "picture",
	}
	LDAPFields = resolver.FieldMap{
		Username: "sAMAccountName",
		Name:     "displayName",
	}
)

// Deps are the process-wide collaborators strategies are built from.
// A nil factory or directory means the provider is not configured.
type Deps struct {
	Completer *Completer
	APIKey    *APIKey
	Google    ProviderFactory
	Keycloak  ProviderFactory
	Directory Directory
}

// Registry holds the strategies of every site. It is populated once at
// startup, sequentially, and is read-only while requests are served.
type Registry struct {
	deps       Deps
	strategies map[string]Strategy
}

func NewRegistry(deps Deps) *Registry {
	if deps.APIKey == nil {
		deps.APIKey = NewAPIKey("")
	}
	return &Registry{
		deps:       deps,
		strategies: make(map[string]Strategy),
	}
}

// APIKey returns the shared API key strategy.
func (r *Registry) APIKey() *APIKey {
	return r.deps.APIKey
}

// Setup registers the strategies of a site. The API key strategy always
// comes first and is present even when not listed. An unknown or
// unconfigured provider fails the whole site.
func (r *Registry) Setup(ctx context.Context, s site.Site) ([]Strategy, error) {
	list := []Strategy{r.deps.APIKey}
	if err := r.deps.APIKey.Register(ctx, s); err != nil {
		return nil, err
	}

	for _, name := range s.Providers {
		if name == NameAPIKey {
			continue
		}
		st, err := r.strategy(name)
		if err != nil {
			return nil, err
		}
		if err := st.Register(ctx, s); err != nil {
			return nil, err
		}
		list = append(list, st)
	}

	logger.Info("strategies registered", map[string]any{
		"site":      s.Slug,
		"providers": strategyNames(list),
	})

	return list, nil
}

// MountRoutes adds every strategy's routes for the site.
func (r *Registry) MountRoutes(routes gin.IRoutes, s site.Site, list []Strategy) {
	for _, st := range list {
		st.MountRoutes(routes, s)
	}
}

func (r *Registry) strategy(name string) (Strategy, error) {
	if st, ok := r.strategies[name]; ok {
		return st, nil
	}

	var st Strategy
	switch name {
	case NameGoogle:
		if r.deps.Google == nil {
			return nil, auth.NewConfigError("provider %s is not configured", name)
		}
		st = NewRedirect(name, GoogleFields, r.deps.Google, r.deps.Completer)
	case NameKeycloak:
		if r.deps.Keycloak == nil {
			return nil, auth.NewConfigError("provider %s is not configured", name)
		}
		st = NewRedirect(name, KeycloakFields, r.deps.Keycloak, r.deps.Completer)
	case NameLDAP:
		if r.deps.Directory == nil {
			return nil, auth.NewConfigError("provider %s is not configured", name)
		}
		st = NewCredential(name, LDAPFields, r.deps.Directory, r.deps.Completer)
	default:
		return nil, auth.NewConfigError("unknown provider: %s", name)
	}

	r.strategies[name] = st
	return st, nil
}

// Providers lists the login links of a site. The API key is never shown.
func Providers(s site.Site) []Descriptor {
	out := make([]Descriptor, 0, len(s.Providers))
	for _, name := range s.Providers {
		if name == NameAPIKey {
			continue
		}
		out = append(out, Descriptor{
			Name:  name,
			Title: "Log in with " + capitalize(name),
			URL:   s.AuthURL() + "/" + name,
		})
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func strategyNames(list []Strategy) []string {
	names := make([]string, len(list))
	for i, st := range list {
		names[i] = st.Name()
	}
	return names
}
