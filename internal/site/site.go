// Package site describes the tenants the gateway protects and derives the
// URLs the login flow redirects through.
package site

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/clay/amphora-auth/internal/auth"
)

// Site is a tenant descriptor. It is owned by the host and read-only here.
type Site struct {
	Slug     string
	Prefix   string // host plus optional path, e.g. "example.com/blog"
	Protocol string
	Port     int
	Path     string

	// Providers lists the enabled authentication strategies by name.
	Providers []string
	// Enroll creates a user record on first successful provider login.
	// When false, only users provisioned by an administrator may log in.
	Enroll bool
}

func (s Site) Validate() error {
	if strings.TrimSpace(s.Slug) == "" {
		return auth.NewConfigError("site is missing a slug")
	}
	if strings.TrimSpace(s.Prefix) == "" {
		return auth.NewConfigError("site %q is missing a prefix", s.Slug)
	}
	switch s.Protocol {
	case "", "http", "https":
	default:
		return auth.NewConfigError("site %q has unsupported protocol %q", s.Slug, s.Protocol)
	}
	return nil
}

// BaseURL turns the prefix into an absolute url. The default port for the
// protocol is omitted.
func (s Site) BaseURL() string {
	u, err := url.Parse("http://" + s.Prefix)
	if err != nil {
		return s.protocol() + "://" + s.Prefix
	}
	u.Scheme = s.protocol()
	if s.Port != 0 && !s.isDefaultPort() {
		u.Host = u.Hostname() + ":" + strconv.Itoa(s.Port)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// AuthURL is the base of every gateway route for the site.
func (s Site) AuthURL() string {
	base := s.BaseURL()
	if strings.HasSuffix(base, "/") {
		return base + "_auth"
	}
	return base + "/_auth"
}

func (s Site) LoginURL() string {
	return s.AuthURL() + "/login"
}

func (s Site) LogoutURL() string {
	return s.AuthURL() + "/logout"
}

func (s Site) CallbackURL(provider string) string {
	return s.AuthURL() + "/" + provider + "/callback"
}

// PathOrBase is the site path for redirects. Some sites have an empty path,
// which means root.
func (s Site) PathOrBase() string {
	if s.Path == "" {
		return "/"
	}
	return s.Path
}

// Host is the host portion of the prefix, without port.
func (s Site) Host() string {
	host, _, _ := strings.Cut(s.Prefix, "/")
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

func (s Site) protocol() string {
	if s.Protocol == "" {
		return "http"
	}
	return s.Protocol
}

func (s Site) isDefaultPort() bool {
	return (s.protocol() == "http" && s.Port == 80) || (s.protocol() == "https" && s.Port == 443)
}
