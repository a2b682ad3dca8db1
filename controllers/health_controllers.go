package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/database"
	"github.com/yeremiapane/forms-api/utils"
)

type HealthController struct {
	Store database.Store
}

func NewHealthController(store database.Store) *HealthController {
	return &HealthController{Store: store}
}

func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hc.Store.Ping(ctx); err != nil {
		utils.ErrorLogger.WithError(err).Error("health check: storage unreachable")
		utils.RespondJSON(c, http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	utils.RespondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}
