package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/site"
)

func countingFactory(calls *int) ProviderFactory {
	return func(context.Context, site.Site) (OAuthProvider, error) {
		*calls++
		return &fakeOAuth{}, nil
	}
}

func TestRegistry_APIKeyAlwaysFirst(t *testing.T) {
	var calls int
	reg := NewRegistry(Deps{
		APIKey:    NewAPIKey("s3cret"),
		Google:    countingFactory(&calls),
		Directory: &fakeDirectory{},
	})

	list, err := reg.Setup(context.Background(), newsSite)
	require.NoError(t, err)

	require.Len(t, list, 3)
	assert.Equal(t, KindAPIKey, list[0].Kind())
	assert.Equal(t, NameGoogle, list[1].Name())
	assert.Equal(t, KindRedirect, list[1].Kind())
	assert.Equal(t, NameLDAP, list[2].Name())
	assert.Equal(t, KindCredential, list[2].Kind())
	assert.Same(t, reg.APIKey(), list[0])
}

func TestRegistry_NoProvidersStillHasAPIKey(t *testing.T) {
	reg := NewRegistry(Deps{})

	list, err := reg.Setup(context.Background(), site.Site{Slug: "bare", Prefix: "bare.example.com"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, NameAPIKey, list[0].Name())
}

func TestRegistry_UnknownProviderFails(t *testing.T) {
	reg := NewRegistry(Deps{})
	s := site.Site{Slug: "news", Prefix: "news.example.com", Providers: []string{"facebook"}}

	_, err := reg.Setup(context.Background(), s)

	var cfgErr *auth.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "unknown provider: facebook")
}

func TestRegistry_UnconfiguredProviderFails(t *testing.T) {
	reg := NewRegistry(Deps{})
	s := site.Site{Slug: "news", Prefix: "news.example.com", Providers: []string{NameKeycloak}}

	_, err := reg.Setup(context.Background(), s)

	var cfgErr *auth.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "keycloak")
}

func TestRegistry_FactoryErrorIsConfigError(t *testing.T) {
	reg := NewRegistry(Deps{
		Google: func(context.Context, site.Site) (OAuthProvider, error) {
			return nil, errors.New("discovery failed")
		},
	})
	s := site.Site{Slug: "news", Prefix: "news.example.com", Providers: []string{NameGoogle}}

	_, err := reg.Setup(context.Background(), s)

	var cfgErr *auth.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "discovery failed")
}

func TestRegistry_RegistrationIsIdempotentPerSite(t *testing.T) {
	var calls int
	reg := NewRegistry(Deps{Google: countingFactory(&calls)})

	news := site.Site{Slug: "news", Prefix: "news.example.com", Providers: []string{NameGoogle}}
	blog := site.Site{Slug: "blog", Prefix: "blog.example.com", Providers: []string{NameGoogle}}

	first, err := reg.Setup(context.Background(), news)
	require.NoError(t, err)
	again, err := reg.Setup(context.Background(), news)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Same(t, first[1], again[1])

	other, err := reg.Setup(context.Background(), blog)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "each site gets its own provider")
	assert.Same(t, first[1], other[1], "strategy instance is shared")
}

func TestProviders(t *testing.T) {
	s := site.Site{
		Slug:      "news",
		Prefix:    "news.example.com/blog",
		Protocol:  "https",
		Providers: []string{NameAPIKey, NameGoogle, NameLDAP},
	}

	got := Providers(s)

	assert.Equal(t, []Descriptor{
		{Name: NameGoogle, Title: "Log in with Google", URL: "https://news.example.com/blog/_auth/google"},
		{Name: NameLDAP, Title: "Log in with Ldap", URL: "https://news.example.com/blog/_auth/ldap"},
	}, got)
}
