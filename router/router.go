package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/config"
	"github.com/yeremiapane/forms-api/controllers"
	"github.com/yeremiapane/forms-api/database"
	"github.com/yeremiapane/forms-api/feed"
	"github.com/yeremiapane/forms-api/middlewares"
	"github.com/yeremiapane/forms-api/services"
	"github.com/yeremiapane/forms-api/utils"
)

// Dependencies are the shared objects the handlers are built from.
type Dependencies struct {
	Config      *config.Config
	Store       database.Store
	Enricher    controllers.Enricher
	Options     services.FormOptions
	Hub         *feed.Hub
	RateLimiter *middlewares.RateLimiter
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if deps.Hub == nil {
		deps.Hub = feed.NewHub()
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middlewares.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		utils.ErrorLogger.WithError(err).Error("invalid TRUSTED_PROXIES, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(middlewares.LoggerMiddleware())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.ErrorLogger.WithField("panic", recovered).Error("unhandled error")
		utils.AbortWithError(c, http.StatusInternalServerError, utils.ErrCodeInternal)
	}))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg))
	r.Use(deps.RateLimiter.RateLimit())
	r.Use(middlewares.BodyLimit(middlewares.MaxBodyBytes))

	r.NoRoute(func(c *gin.Context) {
		utils.RespondError(c, http.StatusNotFound, utils.ErrCodeNotFound)
	})

	// Dashboard routes are only guarded when both admin secrets are set.
	secret := ""
	if cfg.AdminAuthEnabled() {
		secret = cfg.AdminJWTSecret
	}

	// With polling on, the change monitor feeds the hub instead of the handler.
	var notifier controllers.SubmissionNotifier = deps.Hub
	if cfg.PollFeed() {
		notifier = nil
	}

	formController := controllers.NewFormController(deps.Store, deps.Enricher, notifier)
	healthController := controllers.NewHealthController(deps.Store)
	optionsController := controllers.NewOptionsController(deps.Options)
	adminController := controllers.NewAdminController(cfg.AdminPasswordHash, secret, cfg.AdminTokenTTL)
	feedController := controllers.NewFeedController(deps.Hub)

	// The browser client calls /api/..., direct API users call the bare paths.
	for _, g := range []*gin.RouterGroup{r.Group(""), r.Group("/api")} {
		g.GET("/health", healthController.Health)

		g.GET("/community", optionsController.List("community"))
		g.GET("/skill", optionsController.List("skill"))
		g.GET("/category", optionsController.List("category"))

		g.POST("/admin/login", adminController.Login)

		forms := g.Group("/forms")
		{
			forms.POST("/:formName", formController.CreateSubmission)

			dashboard := forms.Group("", middlewares.AdminAuth(secret))
			dashboard.GET("", formController.ListForms)
			dashboard.GET("/:formName/submissions", formController.ListSubmissions)
			dashboard.GET("/:formName/submissions/:id", formController.GetSubmission)
			dashboard.GET("/:formName/stats", formController.GetStats)
		}

		g.GET("/ws/submissions", middlewares.WebSocketAuthMiddleware(secret), feedController.Subscribe)
	}

	return r
}
