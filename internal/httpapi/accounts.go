package httpapi

import (
	"context"
	"net/http"
	"time"

	"voice-platform/internal/accounts"
	"voice-platform/internal/audit"
	"voice-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// --- Auth ---

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FriendlyName string `json:"friendlyName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func sessionBody(s accounts.Session, withToken bool) gin.H {
	acct := gin.H{
		"sid":          s.Account.ID,
		"friendlyName": s.Account.FriendlyName,
		"status":       s.Account.Status,
		"type":         s.Account.Type,
	}
	if withToken {
		acct["authToken"] = s.Account.AuthToken
	}
	return gin.H{
		"success": true,
		"data": gin.H{
			"user": gin.H{
				"id":         s.User.ID,
				"email":      s.User.Email,
				"accountSid": s.User.AccountID,
			},
			"account":   acct,
			"token":     s.Token,
			"expiresAt": s.Expires.UTC().Format(time.RFC3339),
		},
	}
}

// Register creates a user with its own account and returns a session token.
func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid json")
		return
	}
	sess, err := h.Accounts.Register(c.Request.Context(), req.Email, req.Password, req.FriendlyName)
	if err != nil {
		fail(c, err)
		return
	}
	h.record(c, func(ctx context.Context, s *audit.Service, _ string, ip string) error {
		return s.LogAccountRegistered(ctx, sess.Account.ID, sess.User.ID, ip)
	})
	c.JSON(http.StatusCreated, sessionBody(sess, true))
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" {
		invalid(c, "\"email\" and \"password\" are required")
		return
	}
	sess, err := h.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionBody(sess, false))
}

// Profile returns the signed-in user and their account.
func (h Handlers) Profile(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusUnauthorized, CodeAuthentication, "Authentication required")
		return
	}
	user, acct, err := h.Accounts.Profile(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user": gin.H{
				"id":         user.ID,
				"email":      user.Email,
				"accountSid": user.AccountID,
				"createdAt":  user.CreatedAt,
			},
			"account": gin.H{
				"sid":          acct.ID,
				"friendlyName": acct.FriendlyName,
				"status":       acct.Status,
				"type":         acct.Type,
				"dateCreated":  acct.CreatedAt,
			},
		},
	})
}

// --- Accounts ---

func renderAccount(a accounts.Account) gin.H {
	uri := twilioBase + a.ID
	return gin.H{
		"sid":           a.ID,
		"friendly_name": a.FriendlyName,
		"status":        a.Status,
		"type":          a.Type,
		"auth_token":    a.AuthToken,
		"date_created":  a.CreatedAt,
		"date_updated":  a.UpdatedAt,
		"uri":           uri,
		"subresource_uris": gin.H{
			"calls":         uri + "/Calls",
			"usage":         uri + "/Usage",
			"recordings":    uri + "/Recordings",
			"notifications": uri + "/Notifications",
		},
	}
}

func (h Handlers) GetAccount(c *gin.Context) {
	acct, err := h.Accounts.GetAccount(c.Request.Context(), c.Param("account_sid"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, renderAccount(acct))
}

type updateAccountRequest struct {
	FriendlyName string `form:"FriendlyName" json:"FriendlyName"`
}

func (h Handlers) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		invalid(c, "Validation failed")
		return
	}
	acct, err := h.Accounts.UpdateFriendlyName(c.Request.Context(), c.Param("account_sid"), req.FriendlyName)
	if err != nil {
		fail(c, err)
		return
	}
	if req.FriendlyName != "" {
		h.record(c, func(ctx context.Context, s *audit.Service, actor, ip string) error {
			return s.LogAccountUpdated(ctx, acct.ID, actor, ip, acct.FriendlyName)
		})
	}
	c.JSON(http.StatusOK, renderAccount(acct))
}
