package middlewares

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/config"
)

// CORSMiddlewares allows every origin for CORS_ORIGIN="*", otherwise only
// the listed ones.
func CORSMiddlewares(appConfig *config.Config) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	if appConfig.AllowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = appConfig.CORSOrigins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
