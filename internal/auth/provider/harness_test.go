package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/metrics"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
	"github.com/clay/amphora-auth/internal/userstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var newsSite = site.Site{
	Slug:      "news",
	Prefix:    "news.example.com",
	Protocol:  "http",
	Providers: []string{NameGoogle, NameLDAP},
}

type harness struct {
	users     *userstore.MemoryStore
	sessions  *session.Manager
	completer *Completer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users := userstore.NewMemoryStore()
	sessions := session.NewManager(session.NewRedisStore(client, ""), "test-secret", session.CookieOptions{})
	return &harness{
		users:     users,
		sessions:  sessions,
		completer: NewCompleter(resolver.NewStoreResolver(users), sessions, metrics.Noop{}),
	}
}

// engine mounts list for s and adds a route that echoes the session.
func (h *harness) engine(s site.Site, list ...Strategy) *gin.Engine {
	r := gin.New()
	r.Use(h.sessions.Load())
	for _, st := range list {
		st.MountRoutes(r, s)
	}
	r.GET("/_test/session", func(c *gin.Context) {
		st := session.Current(c)
		c.JSON(http.StatusOK, gin.H{
			"principal": st.PrincipalKey(),
			"returnTo":  st.ReturnTo(),
			"flash":     st.Flash(),
		})
	})
	return r
}

type sessionView struct {
	Principal string   `json:"principal"`
	ReturnTo  string   `json:"returnTo"`
	Flash     []string `json:"flash"`
}

func do(r http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func mustSessionView(t *testing.T, r http.Handler, cookie *http.Cookie) sessionView {
	t.Helper()
	require.NotNil(t, cookie, "session cookie")
	rec := do(r, httptest.NewRequest(http.MethodGet, "/_test/session", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var v sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// fakeOAuth stands in for a remote identity provider.
type fakeOAuth struct {
	profile   resolver.Profile
	err       error
	challenge string
	verifier  string
	code      string
}

func (f *fakeOAuth) AuthCodeURL(state, codeChallenge string) string {
	f.challenge = codeChallenge
	return "https://idp.example.com/authorize?state=" + state
}

func (f *fakeOAuth) ExchangeCode(_ context.Context, code, verifier string) (resolver.Profile, error) {
	f.code = code
	f.verifier = verifier
	return f.profile, f.err
}

func factoryOf(p OAuthProvider) ProviderFactory {
	return func(context.Context, site.Site) (OAuthProvider, error) {
		return p, nil
	}
}

// fakeDirectory accepts one username and password pair.
type fakeDirectory struct {
	username string
	password string
	profile  resolver.Profile
	err      error
}

func (d *fakeDirectory) Authenticate(_ context.Context, username, password string) (resolver.Profile, error) {
	if d.err != nil {
		return nil, d.err
	}
	if username != d.username || password != d.password {
		return nil, ErrInvalidCredentials
	}
	return d.profile, nil
}
