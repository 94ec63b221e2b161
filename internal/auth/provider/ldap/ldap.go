// Package ldap authenticates basic credentials against an LDAP or Active
// Directory server.
package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/auth/resolver"
)

// UsernamePlaceholder is replaced by the escaped username in SearchFilter.
const UsernamePlaceholder = "{{username}}"

var defaultAttributes = []string{"sAMAccountName", "displayName", "mail"}

type Config struct {
	URL          string
	BindDN       string
	BindPassword string
	SearchBase   string
	SearchFilter string
	Attributes   []string
}

// Conn is the subset of *ldap.Conn the directory uses.
type Conn interface {
	Bind(username, password string) error
	Search(req *goldap.SearchRequest) (*goldap.SearchResult, error)
	Close() error
}

// Directory implements provider.Directory.
type Directory struct {
	cfg  Config
	dial func(url string) (Conn, error)
}

func New(cfg Config) (*Directory, error) {
	if cfg.URL == "" || cfg.SearchBase == "" || cfg.SearchFilter == "" {
		return nil, errors.New("ldap config missing required fields")
	}
	if !strings.Contains(cfg.SearchFilter, UsernamePlaceholder) {
		return nil, fmt.Errorf("ldap search filter must contain %s", UsernamePlaceholder)
	}
	if len(cfg.Attributes) == 0 {
		cfg.Attributes = defaultAttributes
	}
	return &Directory{cfg: cfg, dial: dialURL}, nil
}

// WithDialer swaps the connection factory.
func (d *Directory) WithDialer(dial func(url string) (Conn, error)) *Directory {
	d.dial = dial
	return d
}

func dialURL(url string) (Conn, error) {
	return goldap.DialURL(url, goldap.DialWithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
}

// Authenticate looks the user up with the service account, then binds as
// the user to check the password.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (resolver.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// An empty password is an unauthenticated bind, which most servers accept.
	if username == "" || password == "" {
		return nil, provider.ErrInvalidCredentials
	}

	conn, err := d.dial(d.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ldap dial: %w", err)
	}
	defer conn.Close()

	if d.cfg.BindDN != "" {
		if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("ldap service bind: %w", err)
		}
	}

	filter := strings.ReplaceAll(d.cfg.SearchFilter, UsernamePlaceholder, goldap.EscapeFilter(username))
	res, err := conn.Search(goldap.NewSearchRequest(
		d.cfg.SearchBase,
		goldap.ScopeWholeSubtree,
		goldap.NeverDerefAliases,
		2, 0, false,
		filter,
		d.cfg.Attributes,
		nil,
	))
	if err != nil && !goldap.IsErrorWithCode(err, goldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("ldap search: %w", err)
	}
	if res == nil || len(res.Entries) != 1 {
		return nil, provider.ErrInvalidCredentials
	}
	entry := res.Entries[0]

	if err := conn.Bind(entry.DN, password); err != nil {
		if goldap.IsErrorWithCode(err, goldap.LDAPResultInvalidCredentials) {
			return nil, provider.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ldap user bind: %w", err)
	}

	profile := resolver.Profile{"dn": entry.DN}
	for _, attr := range d.cfg.Attributes {
		if v := entry.GetAttributeValue(attr); v != "" {
			profile[attr] = v
		}
	}
	return profile, nil
}
