package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"social-prospector/internal/httpapi"
	"social-prospector/internal/plans"
	"social-prospector/internal/quota"
	"social-prospector/internal/rbac"
	"social-prospector/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func registerPublicRoutes(r *gin.Engine, db *sql.DB, rdb *redis.Client) {
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, guard *quota.Guard, actors quota.ActorRepository, authMW gin.HandlerFunc) {
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireActor())

	v1.GET("/goals", h.ListGoals)
	v1.GET("/goals/:goal_id", h.GetGoal)

	q := v1.Group("/quota")
	{
		q.GET("/limits", h.Limits)
		q.POST("/authorize", h.Authorize)
		q.POST("/resources/:resource/check", h.CheckResourceCap)
	}

	readers := rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleMember, rbac.RoleViewer)
	writers := rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleMember)

	cs := v1.Group("/contacts")
	{
		cs.GET("", readers, h.ListContacts)
		cs.POST("", writers, quota.RequireQuota(guard, actors, plans.ActionContactImport), h.ImportContact)
	}

	seq := v1.Group("/sequences")
	{
		seq.POST("", writers, h.StartSequence)
		seq.GET("/:contact_id", readers, h.GetSequence)
		seq.GET("/:contact_id/history", readers, h.History)
		seq.POST("/:contact_id/outbound", writers, quota.RequireQuota(guard, actors, plans.ActionOutreachSend), h.RecordOutbound)
		seq.POST("/:contact_id/inbound", writers, quota.RequireQuota(guard, actors, plans.ActionReplyAnalysis), h.RecordInbound)
		seq.POST("/:contact_id/draft", writers, quota.RequireQuota(guard, actors, plans.ActionMessageDraft), h.Draft)
		seq.POST("/:contact_id/advance", writers, h.Advance)
		seq.POST("/:contact_id/complete", writers, h.Complete)
	}

	v1.GET("/analytics/summary", readers, h.AnalyticsSummary)

	admin := v1.Group("/admin")
	admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
	{
		admin.PUT("/actors/:actor_id", h.PutActor)
	}
}
