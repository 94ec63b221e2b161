package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
	"github.com/clay/amphora-auth/internal/userstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSite = site.Site{
	Slug:     "news",
	Prefix:   "news.example.com",
	Protocol: "http",
}

// recordingMetrics counts calls instead of exporting them.
type recordingMetrics struct {
	decisions     map[string]int
	forcedLogouts int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{decisions: make(map[string]int)}
}

func (m *recordingMetrics) IncDecision(_, decision string) { m.decisions[decision]++ }
func (m *recordingMetrics) IncLogin(string, string, string) {}
func (m *recordingMetrics) IncForcedLogout(string)          { m.forcedLogouts++ }

type pipeline struct {
	engine   *gin.Engine
	users    *userstore.MemoryStore
	sessions *session.Manager
	metrics  *recordingMetrics
}

// newPipeline assembles the request chain the way a site engine does and
// adds a few routes to drive it.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := &pipeline{
		users:    userstore.NewMemoryStore(),
		sessions: session.NewManager(session.NewRedisStore(client, ""), "test-secret", session.CookieOptions{}),
		metrics:  newRecordingMetrics(),
	}

	r := gin.New()
	r.Use(RecoverFromAuthError(testSite, p.sessions, p.metrics))
	r.Use(p.sessions.Load())
	r.Use(Identity(p.users))
	r.Use(Protect(testSite, provider.NewAPIKey("s3cret"), p.sessions, p.metrics))

	r.Any("/articles/:id", func(c *gin.Context) {
		u, _ := auth.UserFromContext(c.Request.Context())
		body := gin.H{"method": c.Request.Method}
		if u != nil {
			body["username"] = u.Username
			body["level"] = u.AuthLevel
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/_test/login", func(c *gin.Context) {
		if err := p.sessions.Rotate(c, session.Current(c).WithPrincipal(c.Query("key"))); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/_test/session", func(c *gin.Context) {
		st := session.Current(c)
		c.JSON(http.StatusOK, gin.H{
			"principal": st.PrincipalKey(),
			"returnTo":  st.ReturnTo(),
		})
	})
	admin := r.Group("/admin", RequireLevel(auth.LevelAdmin))
	admin.GET("", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	p.engine = r
	return p
}

func (p *pipeline) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	p.engine.ServeHTTP(rec, req)
	return rec
}

// addUser stores u and returns its identity key.
func (p *pipeline) addUser(t *testing.T, u *auth.User) string {
	t.Helper()
	require.NoError(t, p.users.Put(context.Background(), auth.UserKey(u.Key()), u))
	return u.Key()
}

// login returns a session cookie whose principal is key.
func (p *pipeline) login(t *testing.T, key string) *http.Cookie {
	t.Helper()
	rec := p.do(httptest.NewRequest(http.MethodGet, "/_test/login?key="+url.QueryEscape(key), nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	return cookie
}

type sessionView struct {
	Principal string `json:"principal"`
	ReturnTo  string `json:"returnTo"`
}

func (p *pipeline) session(t *testing.T, cookie *http.Cookie) sessionView {
	t.Helper()
	rec := p.do(httptest.NewRequest(http.MethodGet, "/_test/session", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var v sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}
