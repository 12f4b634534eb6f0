package main

import (
	"voice-platform/internal/httpapi"
	"voice-platform/internal/rbac"
	"voice-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, status telephony.StatusCallbackHandler) {
	r.NoRoute(httpapi.NotFound)

	// public
	r.GET("/health", h.Health)
	r.GET("/healthz", httpapi.Healthz)
	r.GET("/api", h.Info)

	// Dialer backend progress reports.
	r.POST("/webhooks/status", status.Handle)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/pricing", h.Quote)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/profile", authMW, h.Profile)
		}
	}

	// Account resources are mounted twice: the native API and the Twilio-compatible path.
	registerAccountRoutes(r.Group("/api/v1/accounts/:account_sid"), h, authMW, "/calls", "/usage")
	registerAccountRoutes(r.Group("/2010-04-01/Accounts/:account_sid"), h, authMW, "/Calls", "/Usage")
}

func registerAccountRoutes(g *gin.RouterGroup, h httpapi.Handlers, authMW gin.HandlerFunc, callsPath, usagePath string) {
	g.Use(authMW, rbac.RequireAccount(), rbac.RequireAccountParam("account_sid"))

	g.GET("", h.GetAccount)
	g.POST("", h.UpdateAccount)
	g.GET(usagePath, h.Usage)

	calls := g.Group(callsPath)
	{
		calls.POST("", h.CreateCall)
		calls.GET("", h.ListCalls)
		calls.GET("/:call_sid", h.GetCall)
		calls.POST("/:call_sid", h.UpdateCall)
	}
}
