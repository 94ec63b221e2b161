package site

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clay/amphora-auth/internal/auth"
)

func TestAuthURL(t *testing.T) {
	tests := []struct {
		name string
		site Site
		want string
	}{
		{"root site", Site{Slug: "a", Prefix: "example.com"}, "http://example.com/_auth"},
		{"path site", Site{Slug: "a", Prefix: "example.com/blog", Path: "/blog"}, "http://example.com/blog/_auth"},
		{"https default port dropped", Site{Slug: "a", Prefix: "example.com", Protocol: "https", Port: 443}, "https://example.com/_auth"},
		{"http default port dropped", Site{Slug: "a", Prefix: "example.com", Port: 80}, "http://example.com/_auth"},
		{"custom port kept", Site{Slug: "a", Prefix: "localhost", Port: 3001}, "http://localhost:3001/_auth"},
		{"port in prefix replaced", Site{Slug: "a", Prefix: "localhost:8080", Port: 3001}, "http://localhost:3001/_auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.site.AuthURL())
		})
	}
}

func TestDerivedURLs(t *testing.T) {
	s := Site{Slug: "a", Prefix: "example.com/blog", Protocol: "https", Path: "/blog"}

	assert.Equal(t, "https://example.com/blog/_auth/login", s.LoginURL())
	assert.Equal(t, "https://example.com/blog/_auth/logout", s.LogoutURL())
	assert.Equal(t, "https://example.com/blog/_auth/google/callback", s.CallbackURL("google"))
}

func TestPathOrBase(t *testing.T) {
	assert.Equal(t, "/", Site{}.PathOrBase())
	assert.Equal(t, "/blog", Site{Path: "/blog"}.PathOrBase())
}

func TestHost(t *testing.T) {
	assert.Equal(t, "example.com", Site{Prefix: "Example.com:8080/blog"}.Host())
	assert.Equal(t, "example.com", Site{Prefix: "example.com"}.Host())
}

func TestValidate(t *testing.T) {
	var cfgErr *auth.ConfigError

	err := Site{Prefix: "example.com"}.Validate()
	assert.True(t, errors.As(err, &cfgErr))

	err = Site{Slug: "a"}.Validate()
	assert.True(t, errors.As(err, &cfgErr))

	err = Site{Slug: "a", Prefix: "example.com", Protocol: "ftp"}.Validate()
	assert.True(t, errors.As(err, &cfgErr))

	assert.NoError(t, Site{Slug: "a", Prefix: "example.com", Protocol: "https"}.Validate())
}
