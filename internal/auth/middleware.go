package auth

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	basicPrefix         = "Basic "
)

// RequireAccessToken verifies an access token and injects identity into request context.
// The token comes from "Bearer <jwt>" or from "Basic base64(account_sid:<jwt>)"; in the
// Basic form a non-empty username must match the token's account.
// It does not perform account-scope checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, user, ok := credentials(c.GetHeader(authorizationHeader))
		if !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}
		if user != "" && user != claims.AccountID {
			abortUnauthorized(c, "Credentials do not match the token account")
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.AccountID, claims.Email)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience and request logging.
		c.Set("user_id", claims.UserID)
		c.Set("account_id", claims.AccountID)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// credentials extracts the token and, for Basic auth, the username.
func credentials(header string) (token, user string, ok bool) {
	raw := strings.TrimSpace(header)
	switch {
	case strings.HasPrefix(raw, bearerPrefix):
		token = strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
		return token, "", token != ""
	case strings.HasPrefix(raw, basicPrefix):
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(raw, basicPrefix)))
		if err != nil {
			return "", "", false
		}
		user, token, found := strings.Cut(string(decoded), ":")
		if !found || token == "" {
			return "", "", false
		}
		return token, user, true
	default:
		return "", "", false
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "AUTHENTICATION_ERROR", "message": msg},
	})
}
