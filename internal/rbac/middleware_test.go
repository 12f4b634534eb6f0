package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func withAccount(acct string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", acct, "")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serve(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestRequireAccountParam_OwnAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/Accounts/:account_sid", withAccount("AC1"), RequireAccountParam("account_sid"), func(c *gin.Context) {
		c.Status(200)
	})

	if code := serve(r, "/Accounts/AC1"); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(r, "/Accounts/AC2"); code != 403 {
		t.Fatalf("expected 403 for foreign account, got %d", code)
	}
}

func TestRequireAccount_MissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", withAccount(""), RequireAccount(), func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/y", withAccount("AC1"), RequireAccount(), func(c *gin.Context) {
		c.Status(200)
	})

	if code := serve(r, "/x"); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := serve(r, "/y"); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}
