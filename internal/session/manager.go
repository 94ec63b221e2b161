package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/logger"
)

// DefaultTTL is the rolling session lifetime.
const DefaultTTL = 7 * 24 * time.Hour

const (
	stateContextKey = "session.state"
	idContextKey    = "session.id"
)

// Manager binds a Store to gin requests.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	cookie CookieOptions
}

func NewManager(store Store, secret string, cookie CookieOptions) *Manager {
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    DefaultTTL,
		cookie: cookie,
	}
}

// Load reads the session cookie and places the session State on the
// context. A missing, forged or expired session yields an empty State.
// Existing sessions are rolled forward on every request.
func (m *Manager) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(stateContextKey, State{})

		cookie, err := c.Request.Cookie(m.cookie.normalize().Name)
		if err != nil || cookie.Value == "" {
			c.Next()
			return
		}

		id := unsign(cookie.Value, m.secret)
		if id == "" {
			logger.Warn("session cookie signature mismatch", map[string]any{
				"ip": c.ClientIP(),
			})
			c.Next()
			return
		}

		sess, err := m.store.Get(c.Request.Context(), id)
		if err != nil {
			logger.Error("session load failed", map[string]any{
				"error": err.Error(),
			})
			c.Next()
			return
		}
		if sess == nil || time.Now().After(sess.ExpiresAt) {
			c.Next()
			return
		}

		st := stateFrom(sess)
		c.Set(idContextKey, id)
		c.Set(stateContextKey, st)

		if err := m.persist(c, id, st); err != nil {
			logger.Error("session touch failed", map[string]any{
				"error": err.Error(),
			})
		}

		c.Next()
	}
}

// Current returns the session State of the request.
func Current(c *gin.Context) State {
	if v, ok := c.Get(stateContextKey); ok {
		if st, ok := v.(State); ok {
			return st
		}
	}
	return State{}
}

// Save replaces the request's session State and persists it. An empty State
// for a request without a session is not persisted.
func (m *Manager) Save(c *gin.Context, st State) error {
	c.Set(stateContextKey, st)

	id := c.GetString(idContextKey)
	if id == "" {
		if st.IsZero() {
			return nil
		}
		newID, err := GenerateID()
		if err != nil {
			return err
		}
		id = newID
		c.Set(idContextKey, id)
	}

	return m.persist(c, id, st)
}

// Rotate moves the State to a fresh session id and deletes the old one.
// Called when the principal changes so a pre-login id is never reused.
func (m *Manager) Rotate(c *gin.Context, st State) error {
	if old := c.GetString(idContextKey); old != "" {
		if err := m.store.Delete(c.Request.Context(), old); err != nil {
			return err
		}
	}
	c.Set(idContextKey, "")
	if st.IsZero() {
		c.Set(stateContextKey, st)
		dropSetCookie(c.Writer.Header(), m.cookie.normalize().Name)
		ClearCookie(c.Writer, m.cookie)
		return nil
	}
	return m.Save(c, st)
}

// Destroy deletes the session and clears the cookie.
func (m *Manager) Destroy(c *gin.Context) error {
	c.Set(stateContextKey, State{})
	id := c.GetString(idContextKey)
	if id == "" {
		return nil
	}
	c.Set(idContextKey, "")
	dropSetCookie(c.Writer.Header(), m.cookie.normalize().Name)
	ClearCookie(c.Writer, m.cookie)
	return m.store.Delete(c.Request.Context(), id)
}

func (m *Manager) persist(c *gin.Context, id string, st State) error {
	expiresAt := time.Now().Add(m.ttl)
	sess := Session{
		ID:           id,
		PrincipalKey: st.principalKey,
		ReturnTo:     st.returnTo,
		Flash:        st.flash,
		ExpiresAt:    expiresAt,
	}
	if err := m.store.Save(c.Request.Context(), sess); err != nil {
		return err
	}
	dropSetCookie(c.Writer.Header(), m.cookie.normalize().Name)
	SetCookie(c.Writer, sign(id, m.secret), expiresAt, m.cookie)
	return nil
}

// dropSetCookie removes an earlier Set-Cookie for name written during the
// same request, so a touched-then-saved session sends one cookie.
func dropSetCookie(h http.Header, name string) {
	prefix := name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
}
