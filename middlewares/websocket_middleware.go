package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/utils"
)

// WebSocketAuthMiddleware reads the admin token from ?token=, since browsers
// cannot set headers on a websocket handshake. An empty secret disables it.
func WebSocketAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token := c.Query("token")
		if token == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, utils.ErrCodeUnauthorized)
			return
		}

		claims, err := utils.ParseAdminToken([]byte(secret), token)
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, utils.ErrCodeUnauthorized)
			return
		}

		c.Set("role", claims.Role)
		c.Next()
	}
}
