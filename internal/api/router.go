package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk-api/internal/auth"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/service"
	"github.com/newsdesk-api/pkg/logger"
	"github.com/rs/zerolog"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	Services *service.Services
	Verifier *auth.Verifier
	Feed     events.Feed
	Metrics  *metrics.Metrics
	DB       Pinger
}

// NewRouter creates and configures the Gin router
func NewRouter(deps Deps, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = cfg.Storage.MaxImageSize + 1<<20

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware(deps.Metrics))
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	router.Use(identityMiddleware(deps.Verifier))
	router.Use(sessionMiddleware())

	// Handlers
	articles := NewArticleHandler(deps.Services, log)
	categories := NewCategoryHandler(deps.Services, log)
	users := NewUserHandler(deps.Services, log)
	site := NewSiteHandler(deps.Services, log)
	media := NewMediaHandler(deps.Services, cfg.Storage, log)
	realtime := NewRealtimeHandler(deps.Services, deps.Feed, deps.Metrics, cfg.Server.AllowedOrigins, log)

	// Health check
	router.GET("/health", healthCheck(deps.DB, log))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// API v1
	v1 := router.Group("/v1")
	{
		// Reader site
		v1.GET("/articles", articles.ListPublished)
		v1.GET("/articles/breaking", articles.Breaking)
		v1.GET("/articles/featured", articles.Featured)
		v1.GET("/articles/popular", articles.Popular)
		v1.GET("/articles/:slug", articles.GetBySlug)
		// :slug doubles as the article id on the view routes
		v1.POST("/articles/:slug/views", articles.RecordView)
		v1.GET("/articles/:slug/views", articles.ViewCount)

		v1.GET("/categories", categories.ListActive)
		v1.GET("/categories/popularity", articles.CategoryPopularity)
		v1.GET("/seo", site.GetSEO)
		v1.POST("/visits", site.RecordVisit)
		v1.GET("/profiles/:user_id", users.GetProfile)
		v1.GET("/realtime", realtime.Stream)

		// Signed-in user
		me := v1.Group("/me", requireAuth())
		{
			me.GET("/profile", users.GetOwnProfile)
			me.PUT("/profile", users.UpdateOwnProfile)
			me.POST("/avatar", media.UploadAvatar)
			me.GET("/role", users.MyRole)
		}

		// Admin console
		admin := v1.Group("/admin", requireAuth())
		{
			admin.GET("/dashboard", site.Dashboard)

			admin.GET("/articles", articles.AdminList)
			admin.POST("/articles", articles.Create)
			admin.GET("/articles/:id", articles.AdminGet)
			admin.PUT("/articles/:id", articles.Update)
			admin.DELETE("/articles/:id", articles.Delete)
			admin.POST("/articles/:id/status", articles.SetStatus)

			admin.POST("/media", media.UploadArticleImage)

			admin.GET("/categories", categories.List)
			admin.POST("/categories", categories.Create)
			admin.PUT("/categories/:name", categories.Update)
			admin.DELETE("/categories/:name", categories.Delete)

			admin.GET("/users", users.List)
			admin.PUT("/users/:user_id/role", users.AssignRole)
			admin.DELETE("/roles/:role_id", users.RevokeRole)

			admin.PUT("/seo", site.UpdateSEO)

			admin.GET("/visitors", site.ListVisitors)
			admin.GET("/visitors/stats", site.VisitorStats)
			admin.GET("/visitors/export", site.ExportVisitors)
		}
	}

	return router
}

const healthTimeout = 2 * time.Second

// healthCheck returns the health status, unhealthy when the database does not answer
func healthCheck(db Pinger, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				log.Error().Err(err).Msg("Database health check failed")
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.Service,
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		actor := actorFrom(c)
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("user_id", actor.UserID).
			Msg("Request completed")
	}
}

// metricsMiddleware counts requests and records latency per route template
func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// corsMiddleware handles CORS for the reader site and admin console origins
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll, origins := originPolicy(allowed)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origins[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+auth.SessionHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", auth.SessionHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// originPolicy reports whether every origin is allowed, and otherwise the
// set of allowed origins without trailing slashes
func originPolicy(allowed []string) (bool, map[string]bool) {
	allowAll := len(allowed) == 0
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimRight(o, "/")] = true
	}
	return allowAll, origins
}
