package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth/resolver"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/site"
)

// FlashInvalidCredentials is shown when the directory rejects a login.
// The login page recognises it and re-prompts natively.
const FlashInvalidCredentials = "Invalid username/password"

// ErrInvalidCredentials is returned by a Directory that rejects the
// username or password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is a directory lookup strategy using HTTP basic credentials.
type Credential struct {
	name      string
	fields    resolver.FieldMap
	directory Directory
	completer *Completer

	registered map[string]bool
}

func NewCredential(name string, fields resolver.FieldMap, dir Directory, completer *Completer) *Credential {
	fields.Provider = name
	return &Credential{
		name:       name,
		fields:     fields,
		directory:  dir,
		completer:  completer,
		registered: make(map[string]bool),
	}
}

func (cr *Credential) Name() string { return cr.name }

func (cr *Credential) Kind() Kind { return KindCredential }

func (cr *Credential) Register(_ context.Context, s site.Site) error {
	cr.registered[strategyKey(cr.name, s)] = true
	return nil
}

func (cr *Credential) MountRoutes(r gin.IRoutes, s site.Site) {
	r.GET(fmt.Sprintf("/_auth/%s", cr.name), CheckCredentials, cr.authenticate(s))
}

// CheckCredentials shows the browser's native login prompt when the request
// carries no basic credentials.
func CheckCredentials(c *gin.Context) {
	if _, _, ok := c.Request.BasicAuth(); !ok {
		RejectBasicAuth(c)
		return
	}
	c.Next()
}

// RejectBasicAuth answers 401 with a bare Basic challenge.
func RejectBasicAuth(c *gin.Context) {
	c.Header("WWW-Authenticate", "Basic")
	c.Data(http.StatusUnauthorized, "text/plain; charset=utf-8", []byte("Access denied"))
	c.Abort()
}

func (cr *Credential) authenticate(s site.Site) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cr.registered[strategyKey(cr.name, s)] {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		username, password, _ := c.Request.BasicAuth()

		profile, err := cr.directory.Authenticate(c.Request.Context(), username, password)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("directory rejected credentials", map[string]any{
				"site":     s.Slug,
				"provider": cr.name,
				"username": username,
			})
			cr.completer.Fail(c, s, FlashInvalidCredentials)
			return
		case err != nil:
			logger.Error("directory lookup failed", map[string]any{
				"site":     s.Slug,
				"provider": cr.name,
				"error":    err.Error(),
			})
			cr.completer.Fail(c, s, flashAuthFailed)
			return
		}

		cr.completer.Complete(c, s, cr.fields, profile)
	}
}
