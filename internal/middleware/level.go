package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clay/amphora-auth/internal/auth"
	"github.com/clay/amphora-auth/internal/logger"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Unauthorized answers 401 with the structured error body.
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
		Code:    http.StatusUnauthorized,
		Message: "Unauthorized request",
	})
}

// RequireLevel gates API routes by authorization level. It never
// redirects.
func RequireLevel(required auth.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := auth.UserFromContext(c.Request.Context())
		if !ok {
			Unauthorized(c)
			return
		}

		allowed, err := auth.CheckLevel(u.AuthLevel, required)
		if err != nil {
			logger.Error("user has no auth level", map[string]any{
				"username": u.Username,
				"provider": u.Provider,
				"error":    err.Error(),
			})
			Unauthorized(c)
			return
		}
		if !allowed {
			Unauthorized(c)
			return
		}

		c.Next()
	}
}
