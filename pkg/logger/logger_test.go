package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNew_AddsServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Env: "production", Service: "voice-api", Version: "1.2.3", Output: &buf})
	l.Debug("hidden")
	l.Info("hello")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "voice-api" || line["version"] != "1.2.3" {
		t.Fatalf("unexpected attrs: %v", line)
	}
}

func TestFrom_FallsBackToDefault(t *testing.T) {
	if From(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(New(Options{Env: "local", Output: &buf})))

	var sawLogger bool
	r.GET("/x", func(c *gin.Context) {
		sawLogger = From(c.Request.Context()) == FromGin(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	r.ServeHTTP(w, req)

	if w.Header().Get(HeaderRequestID) != "rid-1" {
		t.Fatalf("expected request id echoed, got %q", w.Header().Get(HeaderRequestID))
	}
	if !sawLogger {
		t.Fatalf("expected request logger in both contexts")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"rid-1"`)) {
		t.Fatalf("expected request_id in log, got %s", buf.String())
	}
}
