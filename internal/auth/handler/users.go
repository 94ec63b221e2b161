package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/logger"
)

type userRequest struct {
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl"`
	AuthLevel string `json:"auth"`
}

// GetUser returns a user record.
func (h *Handler) GetUser(c *gin.Context) {
	key := auth.UserKey(auth.EncodeKey(c.Param("username"), c.Param("provider")))

	u, err := h.users.Get(c.Request.Context(), key)
	if errors.Is(err, auth.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "User not found"})
		return
	}
	if err != nil {
		logger.Error("user lookup failed", map[string]any{
			"site":  h.site.Slug,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "user store error"})
		return
	}

	c.JSON(http.StatusOK, u)
}

// PutUser provisions a user or changes its level. This is the out-of-band
// path for elevating users; provider logins never touch the level.
func (h *Handler) PutUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "invalid request"})
		return
	}

	level, err := auth.ParseLevel(req.AuthLevel)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error()})
		return
	}

	username, providerName := c.Param("username"), c.Param("provider")
	key := auth.UserKey(auth.EncodeKey(username, providerName))

	u, err := h.users.Get(c.Request.Context(), key)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		u = &auth.User{Username: strings.ToLower(username), Provider: providerName}
	case err != nil:
		logger.Error("user lookup failed", map[string]any{
			"site":  h.site.Slug,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "user store error"})
		return
	}

	if req.Name != "" {
		u.Name = req.Name
	}
	if req.ImageURL != "" {
		u.ImageURL = req.ImageURL
	}
	u.AuthLevel = level

	if err := h.users.Put(c.Request.Context(), key, u); err != nil {
		logger.Error("user save failed", map[string]any{
			"site":  h.site.Slug,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "user store error"})
		return
	}

	actor, _ := auth.UserFromContext(c.Request.Context())
	logger.Info("user updated", map[string]any{
		"site":     h.site.Slug,
		"username": u.Username,
		"provider": u.Provider,
		"level":    string(u.AuthLevel),
		"actor":    actor.Provider + ":" + actor.Username,
	})

	c.JSON(http.StatusOK, u)
}
