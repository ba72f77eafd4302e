// Package api exposes the worksheet pipeline over HTTP with gin.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
)

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Worksheets  Worksheets
	Sweeper     Sweeper
	Users       store.UserRepo
	Tokens      TokenParser
	CronSecret  string
	CORSOrigins []string
	Log         *logger.Logger
	// Now defaults to time.Now. The sweep runs for Now's UTC date.
	Now func() time.Time
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	h := &handlers{worksheets: cfg.Worksheets, sweeper: cfg.Sweeper, now: now}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(log.With("component", "http")))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(CORS(cfg.CORSOrigins))
	}

	router.GET("/healthz", h.health)

	cron := router.Group("/api/cron", RequireCronSecret(cfg.CronSecret))
	cron.GET("/run", h.runSweep)
	cron.POST("/run", h.runSweep)

	protected := router.Group("/api", RequireAuth(cfg.Tokens, cfg.Users))
	protected.POST("/worksheets/generate", h.generate)
	protected.POST("/worksheets/resend", h.resend)
	protected.GET("/worksheets/latest", h.latest)
	protected.POST("/llm/generate", h.passthrough)

	return router
}
