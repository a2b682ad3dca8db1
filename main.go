package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/forms-api/config"
	"github.com/yeremiapane/forms-api/database"
	"github.com/yeremiapane/forms-api/feed"
	"github.com/yeremiapane/forms-api/middlewares"
	"github.com/yeremiapane/forms-api/router"
	"github.com/yeremiapane/forms-api/services"
	"github.com/yeremiapane/forms-api/utils"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Warn("Warning: .env file not found")
	}

	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	store, err := database.Open(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open storage: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			utils.ErrorLogger.WithError(err).Error("failed to close storage")
		}
	}()

	var cache services.ProfileCache
	if cfg.RedisURL != "" {
		redisCache, err := services.NewRedisProfileCache(cfg.RedisURL)
		if err != nil {
			utils.ErrorLogger.WithError(err).Error("invalid REDIS_URL, enrichment cache disabled")
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	}

	enricher := services.NewXProfileService(services.XProfileConfig{
		BearerToken:        cfg.XBearerToken,
		APIBaseURL:         cfg.XAPIBaseURL,
		SyndicationBaseURL: cfg.XSyndicationBaseURL,
		Timeout:            cfg.EnrichTimeout,
		CacheTTL:           cfg.EnrichCacheTTL,
	}, cache)

	options, err := services.LoadFormOptions(nil)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load form options: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rateLimiter := middlewares.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	rateLimiter.StartCleanup(ctx.Done())

	hub := feed.NewHub()
	if cfg.PollFeed() {
		monitor := services.NewChangeMonitor(store, hub)
		monitor.Interval = cfg.FeedPollInterval
		monitor.Start()
		defer monitor.Stop()
	}

	r := router.SetupRouter(router.Dependencies{
		Config:      cfg,
		Store:       store,
		Enricher:    enricher,
		Options:     options,
		Hub:         hub,
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.InfoLogger.WithFields(map[string]interface{}{
			"port":    cfg.Port,
			"backend": store.Name(),
		}).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.InfoLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.ErrorLogger.WithError(err).Error("server stopped with error")
	}
}
