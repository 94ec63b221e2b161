package provider

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/site"
)

const (
	stateCookieName = "__oauth_state"
	pkceCookieName  = "__oauth_pkce"
	flowTTL         = 5 * time.Minute
)

func randomToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// flowCookiePath limits the flow cookies to the site's auth routes so sites
// sharing a host do not overwrite each other's state.
func flowCookiePath(s site.Site) string {
	return strings.TrimSuffix(s.Path, "/") + "/_auth"
}

func setFlowCookie(c *gin.Context, s site.Site, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     flowCookiePath(s),
		HttpOnly: true,
		Secure:   s.Protocol == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(flowTTL.Seconds()),
	})
}

func clearFlowCookie(c *gin.Context, s site.Site, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     flowCookiePath(s),
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func generateState(c *gin.Context, s site.Site) string {
	state := randomToken()
	setFlowCookie(c, s, stateCookieName, state)
	return state
}

func validateState(c *gin.Context) bool {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return false
	}

	cookie, err := c.Request.Cookie(stateCookieName)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(stateQuery)) == 1
}

func generatePKCE(c *gin.Context, s site.Site) (verifier string, challenge string) {
	verifier = randomToken()

	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])

	setFlowCookie(c, s, pkceCookieName, verifier)

	return verifier, challenge
}

func getPKCEVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
