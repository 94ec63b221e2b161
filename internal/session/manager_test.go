package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestManager(t *testing.T) (*Manager, *RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "")
	return NewManager(store, "test-secret", CookieOptions{}), store, srv
}

// newEngine wires Load and exposes two routes: one that saves a principal
// and one that reports the loaded state.
func newEngine(m *Manager) *gin.Engine {
	r := gin.New()
	r.Use(m.Load())
	r.GET("/login", func(c *gin.Context) {
		st := Current(c).WithPrincipal("YWxpY2VAZ29vZ2xl")
		if err := m.Rotate(c, st); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, Current(c).PrincipalKey())
	})
	r.GET("/logout", func(c *gin.Context) {
		_ = m.Destroy(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/noop", func(c *gin.Context) {
		_ = m.Save(c, Current(c))
		c.Status(http.StatusNoContent)
	})
	return r
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

func TestManager_RoundTrip(t *testing.T) {
	m, _, _ := newTestManager(t)
	r := newEngine(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "YWxpY2VAZ29vZ2xl", rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1, "a rolled session sends one cookie")
}

func TestManager_TamperedCookieIsIgnored(t *testing.T) {
	m, _, _ := newTestManager(t)
	r := newEngine(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookie := sessionCookie(t, rec)

	forged := &http.Cookie{Name: CookieName, Value: cookie.Value + "x"}
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(forged)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Body.String())
}

func TestManager_EmptyStateIsNotPersisted(t *testing.T) {
	m, _, srv := newTestManager(t)
	r := newEngine(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/noop", nil))
	assert.Empty(t, rec.Result().Cookies())
	assert.Empty(t, srv.Keys())
}

func TestManager_RotateReplacesSessionID(t *testing.T) {
	m, _, srv := newTestManager(t)
	r := newEngine(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	first := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(first)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	second := sessionCookie(t, rec)

	assert.NotEqual(t, first.Value, second.Value)
	assert.Len(t, srv.Keys(), 1)
}

func TestManager_Destroy(t *testing.T) {
	m, _, srv := newTestManager(t)
	r := newEngine(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
	assert.Empty(t, srv.Keys())
}

func TestRedisStore_Prefix(t *testing.T) {
	_, _, srv := newTestManager(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "staging")
	require.NoError(t, store.Save(context.Background(), Session{
		ID:           "abc",
		PrincipalKey: "k",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))
	assert.True(t, srv.Exists("staging-clay-session:abc"))

	got, err := store.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "k", got.PrincipalKey)

	missing, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisStore_ExpiredSaveDeletes(t *testing.T) {
	_, store, srv := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Session{ID: "abc", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Save(ctx, Session{ID: "abc", ExpiresAt: time.Now().Add(-time.Second)}))
	assert.False(t, srv.Exists("clay-session:abc"))

	assert.Error(t, store.Save(ctx, Session{}))
}
