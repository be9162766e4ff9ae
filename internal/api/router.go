package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"staffplan-backend/config"
	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. The GET response cache
// is flushed by every mutation and loses an event's entries on every
// notification for it on b, so remote changes relayed over NATS invalidate
// it too. A nil gatherer leaves
// /metrics unmounted.
func NewRouter(handler *Handler, cfg config.ServerConfig, b *bus.Bus, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	responses := mw.NewResponseCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	if b != nil {
		b.SubscribeAll(responses.OnNotify())
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(rateLimiter, responses.Middleware())
	{
		api.GET("/assignments", handler.GetAssignments)
		api.POST("/assignments", handler.PostAssignment)
		api.PUT("/assignments", handler.PutAssignments)

		events := api.Group("/events/:event_id")
		events.GET("/board", handler.GetBoard)
		events.GET("/statuses", handler.GetStatuses)
		events.PUT("/statuses/:employee_id", handler.PutStatus)
		events.PUT("/headcount", handler.PutHeadcount)
		events.POST("/always-needed", handler.PostAlwaysNeeded)
		events.POST("/reset", handler.PostReset)
		events.DELETE("/assignments", handler.DeleteEventAssignments)
		events.GET("/work-areas", handler.GetWorkAreas)
		events.POST("/work-areas", handler.PostWorkArea)
		events.GET("/roster", handler.GetRoster)
		events.PUT("/attendance/:employee_id", handler.PutAttendance)

		api.PUT("/work-areas/:id", handler.PutWorkArea)
		api.DELETE("/work-areas/:id", handler.DeleteWorkArea)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetPushConfig)
	}

	return r
}
