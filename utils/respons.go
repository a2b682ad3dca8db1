package utils

import (
	"github.com/gin-gonic/gin"
)

// Fixed error codes returned in {"error": code} bodies.
const (
	ErrCodeStoreFailed   = "failed_to_store_submission"
	ErrCodeListFailed    = "failed_to_list_submissions"
	ErrCodeGetFailed     = "failed_to_get_submission"
	ErrCodeStatsFailed   = "failed_to_get_stats"
	ErrCodeNotFound      = "not_found"
	ErrCodeInternal      = "internal_error"
	ErrCodeTooMany       = "too_many_requests"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeBadCredential = "invalid_credentials"
	ErrCodeTooLarge      = "payload_too_large"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondJSON(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}

func RespondError(c *gin.Context, code int, errCode string) {
	c.JSON(code, ErrorResponse{Error: errCode})
}

// AbortWithError writes the error body and stops the handler chain.
func AbortWithError(c *gin.Context, code int, errCode string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: errCode})
}
