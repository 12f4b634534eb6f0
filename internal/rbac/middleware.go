package rbac

import (
	"net/http"

	"voice-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAccount enforces the tenancy invariant: the caller must carry an account
// identity. Run it after auth.RequireAccessToken.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, err := auth.AccountID(c.Request.Context())
		if err != nil || acct == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "AUTHENTICATION_ERROR", "message": "Account identity required"},
			})
			return
		}
		c.Next()
	}
}

// RequireAccountParam allows access only when the account named by the path parameter
// is the caller's own account.
func RequireAccountParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, err := auth.AccountID(c.Request.Context())
		if err != nil || acct == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "AUTHENTICATION_ERROR", "message": "Account identity required"},
			})
			return
		}
		if c.Param(param) != acct {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"code": "AUTHORIZATION_ERROR", "message": "Access denied to this account"},
			})
			return
		}
		c.Next()
	}
}
