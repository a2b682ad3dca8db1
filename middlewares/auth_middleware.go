package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/utils"
)

// AdminAuth requires "Authorization: Bearer <jwt>" signed with secret.
// An empty secret disables the check.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.AbortWithError(c, http.StatusUnauthorized, utils.ErrCodeUnauthorized)
			return
		}

		claims, err := utils.ParseAdminToken([]byte(secret), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, utils.ErrCodeUnauthorized)
			return
		}

		c.Set("role", claims.Role)
		c.Next()
	}
}
