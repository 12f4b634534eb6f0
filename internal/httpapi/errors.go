package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"voice-platform/internal/accounts"
	"voice-platform/internal/calls"
	"voice-platform/internal/reporting"
	"voice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotFound       = "NOT_FOUND_ERROR"
	CodeRateLimit      = "RATE_LIMIT_ERROR"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
)

// abortError writes the error envelope every endpoint shares.
func abortError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}

// fail maps a service error onto the envelope. Unclassified errors are logged and
// reported without their message.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrValidation):
		abortError(c, http.StatusBadRequest, CodeValidation, detail(err, calls.ErrValidation))
	case errors.Is(err, accounts.ErrInvalidArgument):
		abortError(c, http.StatusBadRequest, CodeValidation, detail(err, accounts.ErrInvalidArgument))
	case errors.Is(err, accounts.ErrEmailTaken):
		abortError(c, http.StatusBadRequest, CodeValidation, accounts.ErrEmailTaken.Error())
	case errors.Is(err, reporting.ErrInvalidRequest):
		abortError(c, http.StatusBadRequest, CodeValidation, "\"from\" must be before \"to\"")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		abortError(c, http.StatusUnauthorized, CodeAuthentication, "Invalid email or password")
	case errors.Is(err, calls.ErrNotFound):
		abortError(c, http.StatusNotFound, CodeNotFound, "Call not found")
	case errors.Is(err, accounts.ErrNotFound):
		abortError(c, http.StatusNotFound, CodeNotFound, "Account not found")
	case errors.Is(err, calls.ErrCapacity):
		abortError(c, http.StatusTooManyRequests, CodeRateLimit, "Too many active calls for this account")
	default:
		logger.FromGin(c).Error("request failed", "path", c.FullPath(), "err", err)
		_ = c.Error(err)
		abortError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// detail strips the sentinel prefix from a wrapped validation error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "Validation failed"
	}
	return msg
}

func invalid(c *gin.Context, msg string) {
	abortError(c, http.StatusBadRequest, CodeValidation, msg)
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	abortError(c, http.StatusNotFound, CodeNotFound, "Route "+c.Request.Method+" "+c.Request.URL.Path+" not found")
}
