package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clay/amphora-auth/internal/site"
)

// DefaultSessionSecret is used when CLAY_SESSION_SECRET is unset. It is
// public, so it is only accepted for sites served over plain http.
const DefaultSessionSecret = "clay"

type Config struct {
	AppPort     string
	MetricsPort string
	LogLevel    string

	SessionSecret string
	AccessKey     string

	RedisAddr     string
	RedisPassword string
	RedisDB       string

	// UserStore selects the user record backend: redis, postgres or memory.
	UserStore   string
	DatabaseDSN string

	GoogleClientID     string
	GoogleClientSecret string

	KeycloakIssuer        string
	KeycloakClientID      string
	KeycloakPublicBaseURL string

	LDAP LDAPConfig

	UpstreamURL string

	SitesFile string
	Sites     []site.Site
}

// LDAPConfig holds directory connection parameters.
type LDAPConfig struct {
	URL          string
	BindDN       string
	BindPassword string
	SearchBase   string
	SearchFilter string
}

func Load() Config {

	cfg := Config{

		AppPort:     envOr("APP_PORT", "3001"),
		MetricsPort: envOr("METRICS_PORT", "9090"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		SessionSecret: envOr("CLAY_SESSION_SECRET", DefaultSessionSecret),
		AccessKey:     os.Getenv("CLAY_ACCESS_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       os.Getenv("REDIS_DB"),

		UserStore:   envOr("USER_STORE", "redis"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		GoogleClientID:     os.Getenv("GOOGLE_CONSUMER_KEY"),
		GoogleClientSecret: os.Getenv("GOOGLE_CONSUMER_SECRET"),

		KeycloakIssuer:        os.Getenv("KEYCLOAK_ISSUER"),
		KeycloakClientID:      os.Getenv("KEYCLOAK_CLIENT_ID"),
		KeycloakPublicBaseURL: os.Getenv("KEYCLOAK_PUBLIC_BASE_URL"),

		LDAP: LDAPConfig{
			URL:          os.Getenv("LDAP_URL"),
			BindDN:       os.Getenv("LDAP_BIND_DN"),
			BindPassword: os.Getenv("LDAP_BIND_CREDENTIALS"),
			SearchBase:   os.Getenv("LDAP_SEARCH_BASE"),
			SearchFilter: os.Getenv("LDAP_SEARCH_FILTER"),
		},

		UpstreamURL: os.Getenv("UPSTREAM_URL"),

		SitesFile: envOr("SITES_FILE", "sites.yaml"),
	}

	return cfg

}

// UsesDefaultSecret reports whether session cookies are signed with the
// public fallback secret.
func (cfg Config) UsesDefaultSecret() bool {
	return cfg.SessionSecret == DefaultSessionSecret
}

// Validate rejects configurations that must not be served. Anyone can forge
// a session cookie signed with the default secret, so an https site
// requires a real one.
func (cfg Config) Validate() error {
	if !cfg.UsesDefaultSecret() {
		return nil
	}
	for _, s := range cfg.Sites {
		if s.Protocol == "https" {
			return fmt.Errorf("config: CLAY_SESSION_SECRET must be set to serve https site %q", s.Slug)
		}
	}
	return nil
}

type sitesFile struct {
	Sites []siteEntry `yaml:"sites"`
}

type siteEntry struct {
	Slug      string   `yaml:"slug"`
	Prefix    string   `yaml:"prefix"`
	Protocol  string   `yaml:"protocol"`
	Port      string   `yaml:"port"`
	Path      string   `yaml:"path"`
	Providers []string `yaml:"providers"`
	Enroll    bool     `yaml:"enroll"`
}

// LoadSites reads the sites file into cfg.Sites. Every site is validated;
// a bad site fails the whole load so it can never be served half-configured.
func (cfg *Config) LoadSites() error {
	raw, err := os.ReadFile(cfg.SitesFile)
	if err != nil {
		return fmt.Errorf("config: read sites file: %w", err)
	}
	sites, err := ParseSites(raw)
	if err != nil {
		return err
	}
	cfg.Sites = sites
	return nil
}

// ParseSites decodes a YAML sites document.
func ParseSites(raw []byte) ([]site.Site, error) {
	var doc sitesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse sites: %w", err)
	}
	if len(doc.Sites) == 0 {
		return nil, fmt.Errorf("config: no sites configured")
	}

	out := make([]site.Site, 0, len(doc.Sites))
	seen := make(map[string]bool, len(doc.Sites))
	for _, e := range doc.Sites {
		port := 0
		if e.Port != "" {
			p, err := strconv.Atoi(strings.TrimSpace(e.Port))
			if err != nil {
				return nil, fmt.Errorf("config: site %q: bad port %q", e.Slug, e.Port)
			}
			port = p
		}
		s := site.Site{
			Slug:      e.Slug,
			Prefix:    e.Prefix,
			Protocol:  e.Protocol,
			Port:      port,
			Path:      e.Path,
			Providers: e.Providers,
			Enroll:    e.Enroll,
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Slug] {
			return nil, fmt.Errorf("config: duplicate site slug %q", s.Slug)
		}
		seen[s.Slug] = true
		out = append(out, s)
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
