package main

import (
	"database/sql"
	"time"

	"intake-platform/internal/httpapi"
	"intake-platform/internal/rbac"
	"intake-platform/internal/telephony"
	"intake-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, voice *telephony.VoiceHandlers, api httpapi.Handlers, db *sql.DB, rdb *redis.Client) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by Twilio signature validation in production.
	{
		r.POST("/webhooks/twilio/voice", voice.HandleInbound)
		r.POST("/webhooks/twilio/recording", voice.HandleRecording)
		r.POST("/webhooks/twilio/digits", voice.HandleDigits)
		r.POST("/webhooks/twilio/status", voice.HandleStatus)
	}

	// Customer-facing review links from the confirmation SMS (public).
	r.GET("/r/:token", api.ResolveReview)

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", api.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		calls := v1.Group("/calls")
		calls.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleDispatcher))
		{
			calls.GET("/follow-ups", api.ListFollowUps)
			calls.GET("/:call_id", api.GetCall)
		}

		reports := v1.Group("/reports")
		reports.Use(rbac.RequireAnyRole(rbac.RoleOwner))
		{
			reports.GET("/intake", api.IntakeReport)
		}
	}
}
