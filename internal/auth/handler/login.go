package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/session"
)

//go:embed views/login.html
var views embed.FS

var loginPage = template.Must(template.ParseFS(views, "views/login.html"))

type loginData struct {
	Path       string
	Flash      []string
	Providers  []provider.Descriptor
	User       *auth.User
	LogoutLink string
}

// Login renders the login page and consumes pending flash messages.
func (h *Handler) Login(c *gin.Context) {
	flash, st := session.Current(c).TakeFlash()
	if len(flash) > 0 {
		if err := h.sessions.Save(c, st); err != nil {
			logger.Error("session save failed", map[string]any{
				"site":  h.site.Slug,
				"error": err.Error(),
			})
		}
	}

	// Prompt once more for directory credentials; the page is shown without
	// the browser keeping the bad basic auth credentials.
	if slices.Contains(flash, provider.FlashInvalidCredentials) {
		c.Header("WWW-Authenticate", `Basic realm="Incorrect Credentials"`)
		c.Data(http.StatusUnauthorized, "text/plain; charset=utf-8", []byte("Access denied"))
		return
	}

	u, _ := auth.UserFromContext(c.Request.Context())
	data := loginData{
		Path:       h.site.PathOrBase(),
		Flash:      flash,
		Providers:  provider.Providers(h.site),
		User:       u,
		LogoutLink: h.site.LogoutURL(),
	}

	var buf bytes.Buffer
	if err := loginPage.Execute(&buf, data); err != nil {
		logger.Error("login page render failed", map[string]any{
			"site":  h.site.Slug,
			"error": err.Error(),
		})
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
