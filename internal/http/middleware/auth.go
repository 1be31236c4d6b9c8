package middleware

import (
	"net/http"
	"strings"

	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const playerIDKey = "player_id"

// JWT requires a bearer token and stores the player id on the gin context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(playerIDKey, id)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), "player_id", id))
		c.Next()
	}
}

// PlayerID returns the id stored by JWT.
func PlayerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(playerIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
