package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/auth/provider"
	"github.com/clay/amphora-auth/internal/logger"
	"github.com/clay/amphora-auth/internal/middleware"
	"github.com/clay/amphora-auth/internal/session"
	"github.com/clay/amphora-auth/internal/site"
	"github.com/clay/amphora-auth/internal/userstore"
)

// Handler serves the gateway routes of one site.
type Handler struct {
	site       site.Site
	registry   *provider.Registry
	strategies []provider.Strategy
	sessions   *session.Manager
	users      userstore.Store
}

func NewHandler(
	s site.Site,
	registry *provider.Registry,
	strategies []provider.Strategy,
	sessions *session.Manager,
	users userstore.Store,
) *Handler {
	return &Handler{
		site:       s,
		registry:   registry,
		strategies: strategies,
		sessions:   sessions,
		users:      users,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/_auth/login", h.Login)
	r.GET("/_auth/logout", h.Logout)
	r.GET("/_auth/me", h.Me)

	h.registry.MountRoutes(r, h.site, h.strategies)

	admin := r.Group("/_users", middleware.RequireLevel(auth.LevelAdmin))
	admin.GET("/:username/:provider", h.GetUser)
	admin.PUT("/:username/:provider", h.PutUser)

	logger.Debug("auth routes mounted", map[string]any{
		"site":       h.site.Slug,
		"strategies": len(h.strategies),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if u, ok := auth.UserFromContext(c.Request.Context()); ok {
		logger.Info("logout", map[string]any{
			"site":     h.site.Slug,
			"username": u.Username,
			"provider": u.Provider,
			"ip":       c.ClientIP(),
		})
	}
	middleware.Logout(c, h.site, h.sessions)
}

// Me returns the user of the current session.
func (h *Handler) Me(c *gin.Context) {
	u, ok := auth.UserFromContext(c.Request.Context())
	if !ok {
		middleware.Unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, u)
}
