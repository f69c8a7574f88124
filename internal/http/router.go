// Package httpapi wires the HTTP transport (Gin) to the haiku services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, caching, CORS, security headers, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Degraded storage is a response code, never a startup failure
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-haiku-backend/internal/config"
	"github.com/tbourn/go-haiku-backend/internal/domain"
	"github.com/tbourn/go-haiku-backend/internal/http/handlers"
	"github.com/tbourn/go-haiku-backend/internal/http/middleware"
	"github.com/tbourn/go-haiku-backend/internal/repo"
	"github.com/tbourn/go-haiku-backend/internal/services"
)

// HaikuRepoShim adapts the repository free functions to the
// services.HaikuRepo interface expected by the StorageService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type HaikuRepoShim struct{}

// CreateHaiku proxies repo.CreateHaiku.
func (HaikuRepoShim) CreateHaiku(ctx context.Context, db *gorm.DB, subject, text string, userID *string) (*domain.Haiku, error) {
	return repo.CreateHaiku(ctx, db, subject, text, userID)
}

// GetHaiku proxies repo.GetHaiku.
func (HaikuRepoShim) GetHaiku(ctx context.Context, db *gorm.DB, id string) (*domain.Haiku, error) {
	return repo.GetHaiku(ctx, db, id)
}

// ListRecentHaikus proxies repo.ListRecentHaikus.
func (HaikuRepoShim) ListRecentHaikus(ctx context.Context, db *gorm.DB, limit int) ([]domain.Haiku, error) {
	return repo.ListRecentHaikus(ctx, db, limit)
}

// SearchHaikusBySubject proxies repo.SearchHaikusBySubject.
func (HaikuRepoShim) SearchHaikusBySubject(ctx context.Context, db *gorm.DB, substring string, limit int) ([]domain.Haiku, error) {
	return repo.SearchHaikusBySubject(ctx, db, substring, limit)
}

// DeleteHaiku proxies repo.DeleteHaiku.
func (HaikuRepoShim) DeleteHaiku(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	return repo.DeleteHaiku(ctx, db, id)
}

// CountHaikus proxies repo.CountHaikus.
func (HaikuRepoShim) CountHaikus(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountHaikus(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and
// rate limiting, CORS and security headers, health and metrics endpoints, a
// TTL read cache over the GET routes, and then mounts the public API under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: resolve X-User-ID into the request context
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Gzip compression
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, store *services.StorageService, gen *services.GeneratorService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Caller identity (no auth; the rate limiter and idempotency lookup
	// key on this, so it must come before both)
	r.Use(identity())

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-User-ID", // caller identity stays out of the logs
		},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Gzip for the JSON payloads; /metrics has its own encoding
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 9) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, key string, _ time.Time) (bool, error) {
			_, ok := store.LookupIdempotency(ctx, userID, key)
			return ok, nil
		},
	))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "X-Cache"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "X-Cache"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health; reports storage state without failing the check, so
	// a misconfigured store keeps the process schedulable
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"storage": store.IsAvailable(),
		})
	})

	// Swagger UI (off by default; SWAGGER_ENABLED=true to expose)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginswagger.WrapHandler(swaggerfiles.Handler))
	}

	// TTL read cache over the GET endpoints; every successful write below
	// must invalidate it
	cache := middleware.NewReadCache(cfg.CacheTTL)

	h := handlers.New(store, gen)
	h.IdempotencyTTL = cfg.IdempotencyTTL
	h.DefaultLimit = cfg.DefaultLimit
	h.Invalidate = cache.Invalidate

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/haikus", h.SaveHaiku)
		api.GET("/haikus", cache.Handler(), h.ListHaikus)
		api.GET("/haikus/search", cache.Handler(), h.SearchHaikus)
		api.GET("/haikus/stats", h.GetStats)
		api.GET("/haikus/:id", cache.Handler(), h.GetHaiku)
		api.DELETE("/haikus/:id", h.DeleteHaiku)
	}
}

// identity resolves the optional X-User-ID header into the "userID" context
// key consumed by the rate limiter and the idempotency lookup.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := c.GetHeader("X-User-ID"); uid != "" {
			c.Set("userID", uid)
		}
		c.Next()
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
