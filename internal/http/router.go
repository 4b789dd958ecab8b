// Package httpapi wires the HTTP transport (Gin) to the delay guarantee
// services, middleware, and route handlers. It centralizes cross-cutting
// concerns such as tracing, correlation IDs, logging/redaction, panic
// recovery, metrics, CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-delay-guarantee/docs"
	"github.com/tbourn/go-delay-guarantee/internal/config"
	"github.com/tbourn/go-delay-guarantee/internal/http/handlers"
	"github.com/tbourn/go-delay-guarantee/internal/http/middleware"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
)

// idempotencyScope must match the scope the calculate handler stores keys under.
const idempotencyScope = "delay.calculate"

// App carries the services the routes are bound to.
type App struct {
	Delay    handlers.DelayService
	Workflow handlers.Workflow
	Flags    handlers.FlagAdmin
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. The API is mounted under cfg.APIBasePath; /health, /metrics and the
// optional /swagger UI stay at the root.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII and discount code scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and security headers
//  10. gzip (optional)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, app App, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(64 << 10))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Only POST calculate stores keys; elsewhere a key is validated but
	// never counts as a replay.
	calculatePath := joinPath(cfg.APIBasePath, "/delay/calculate")
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == calculatePath {
					return idempotencyScope
				}
				return ""
			},
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			if scope == "" {
				return false, nil
			}
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(app.Delay, app.Workflow, app.Flags, db, cfg.IdempotencyTTL)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		delay := api.Group("/delay")
		delay.Use(middleware.SecurityHeaders(middleware.SecurityOptions{CacheControl: "no-store"}))
		delay.GET("/calculate/:bookingId", h.GetCalculate)
		delay.POST("/calculate", h.PostCalculate)
		delay.POST("/redeem", h.Redeem)

		admin := api.Group("/admin")
		admin.Use(middleware.SecurityHeaders(middleware.SecurityOptions{CacheControl: "no-cache"}))
		admin.GET("/delay/pending", h.ListCompensations)
		admin.GET("/delay/:id", h.GetCompensation)
		admin.POST("/delay/approve/:id", h.ApproveCompensation)
		admin.POST("/delay/reject/:id", h.RejectCompensation)
		admin.GET("/flags/:name", h.GetFlag)
		admin.PUT("/flags/:name", h.SetFlag)
	}
}

// corsMiddleware returns the CORS posture. With no configured origins every
// origin is allowed without credentials; otherwise only the allowlist is
// echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	// The pre-handler sets ACAO even on requests without an Origin header,
	// which the cors package leaves untouched.
	var pre gin.HandlerFunc
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		pre = func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
	} else {
		base.AllowOrigins = origins
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		pre = func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); allowed[origin] {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
			c.Next()
		}
	}
	return []gin.HandlerFunc{pre, cors.New(base)}
}

// limitBody caps the request body at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// joinPath appends p to the API base path, treating "/" (or empty) as root.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
