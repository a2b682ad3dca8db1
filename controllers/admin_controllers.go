package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/forms-api/utils"
)

type AdminController struct {
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

func NewAdminController(passwordHash, jwtSecret string, ttl time.Duration) *AdminController {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AdminController{PasswordHash: passwordHash, JWTSecret: jwtSecret, TokenTTL: ttl}
}

// Enabled reports whether dashboard routes are protected.
func (ac *AdminController) Enabled() bool {
	return ac.PasswordHash != "" && ac.JWTSecret != ""
}

type loginRequest struct {
	Password string `json:"password" form:"password" binding:"required"`
}

// Login exchanges the admin password for a signed token.
func (ac *AdminController) Login(c *gin.Context) {
	if !ac.Enabled() {
		utils.RespondError(c, http.StatusNotFound, utils.ErrCodeNotFound)
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, utils.ErrCodeBadCredential)
		return
	}
	if !utils.CheckPassword(ac.PasswordHash, req.Password) {
		utils.InfoLogger.WithField("ip", utils.ClientIP(c)).Warn("admin login rejected")
		utils.RespondError(c, http.StatusUnauthorized, utils.ErrCodeBadCredential)
		return
	}

	token, expiresAt, err := utils.GenerateAdminToken([]byte(ac.JWTSecret), ac.TokenTTL)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("failed to sign admin token")
		utils.RespondError(c, http.StatusInternalServerError, utils.ErrCodeInternal)
		return
	}

	utils.RespondJSON(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC(),
	})
}
