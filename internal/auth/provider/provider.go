package provider

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/site"
)

// Provider names accepted in a site's provider list.
const (
	NameAPIKey   = "apikey"
	NameGoogle   = "google"
	NameKeycloak = "keycloak"
	NameLDAP     = "ldap"
)

// Kind is the closed set of strategy shapes.
type Kind int

const (
	KindAPIKey Kind = iota + 1
	KindRedirect
	KindCredential
)

func (k Kind) String() string {
	switch k {
	case KindAPIKey:
		return "apikey"
	case KindRedirect:
		return "redirect"
	case KindCredential:
		return "credential"
	default:
		return "unknown"
	}
}

// Strategy is the capability every authentication strategy exposes.
// Register is idempotent per site; MountRoutes adds the challenge endpoint
// and, for redirect strategies, the callback.
type Strategy interface {
	Name() string
	Kind() Kind
	Register(ctx context.Context, s site.Site) error
	MountRoutes(r gin.IRoutes, s site.Site)
}

// OAuthProvider defines the contract every external redirect-based
// provider must implement. Implementations return profile claims only and
// must not perform user creation, linking, or session management.
type OAuthProvider interface {
	// AuthCodeURL returns the OAuth authorization URL.
	// State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode exchanges the authorization code for provider credentials
	// and returns the verified profile claims. No auth decisions are made here.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (resolver.Profile, error)
}

// ProviderFactory builds the OAuthProvider of one site; the callback url
// differs per site.
type ProviderFactory func(ctx context.Context, s site.Site) (OAuthProvider, error)

// Directory authenticates a username and password against a credential
// store such as LDAP and returns the entry's attributes.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (resolver.Profile, error)
}

// Descriptor is a login link shown on the login page.
type Descriptor struct {
	Name  string
	Title string
	URL   string
}

func strategyKey(name string, s site.Site) string {
	return name + "-" + s.Slug
}
