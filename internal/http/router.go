// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/erichecan/AIrest/internal/config"
	"github.com/erichecan/AIrest/internal/http/handlers"
	"github.com/erichecan/AIrest/internal/http/middleware"
	"github.com/erichecan/AIrest/internal/menu"
	"github.com/erichecan/AIrest/internal/nlp"
	"github.com/erichecan/AIrest/internal/repo"
	"github.com/erichecan/AIrest/internal/services"
	"github.com/erichecan/AIrest/internal/session"
)

// Deps bundles the externally constructed dependencies the router needs.
// Redis and Notifier are optional; nil values select in-process fallbacks.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Notifier services.Notifier
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, the
// voice-platform webhook, and then mounts the versioned public API under
// /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per tenant tuple, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (the webhook signature and
	// idempotency keys are masked by the built-in defaults)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		idempotencyLookup(db, cfg.IdempotencyTTL),
	))

	// 8) Token-bucket rate limiter per tenant tuple (IP fallback)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByTenantOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Tenant-ID", "X-Restaurant-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
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
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Tenant-ID", "X-Restaurant-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
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

	// Liveness/health (reports database reachability)
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Dependency injection: services ← repo/db/catalog
	catalog := menu.NewCatalog(db)
	if n, err := catalog.Warm(context.Background(), cfg.DefaultRestaurantID); err != nil {
		log.Warn().Err(err).Int("restaurant_id", cfg.DefaultRestaurantID).Msg("menu index warmup failed")
	} else {
		log.Info().Int("restaurant_id", cfg.DefaultRestaurantID).Int("items", n).Msg("menu index warmed")
	}
	store := services.NewConfigStore(db, cfg.TransferPhoneNumber)
	undoSvc := services.NewUndoService(db, store)
	orderSvc := services.NewOrderQueryService(db)
	cmdSvc := services.NewCommandService(db, nlp.NewParser(), catalog, store, undoSvc, orderSvc)
	sessions := session.NewStore(deps.Redis, cfg.SessionTTL)

	notifier := deps.Notifier
	if notifier == nil {
		notifier = services.LogNotifier{}
	}

	defaults := handlers.Defaults{
		TenantID:     cfg.DefaultTenantID,
		RestaurantID: cfg.DefaultRestaurantID,
	}
	h := handlers.New(cmdSvc, undoSvc, store, defaults)
	wh := handlers.NewWebhookHandler(db, cmdSvc, undoSvc, orderSvc, sessions, catalog, notifier,
		deps.Redis, cfg.Webhook.Secret, defaults, cfg.Webhook.EventsPerMinute, cfg.Webhook.EventTTL,
		decimal.NewFromFloat(cfg.TaxRate), cfg.TransferPhoneNumber)

	// Voice-platform webhook (outside the versioned API, matches platform config)
	r.POST("/webhook", wh.Handle)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Commands
		api.POST("/nl/command", h.ExecuteCommand)
		api.POST("/nl/confirm", h.ConfirmCommand)
		api.POST("/nl/undo", h.UndoChange)

		// Config
		api.GET("/nl/config", h.GetConfig)
	}
}

// idempotencyLookup answers the replay question for the idempotency
// middleware from the change ledger: a key replays only while its ledger row
// is younger than ttl.
func idempotencyLookup(db *gorm.DB, ttl time.Duration) middleware.IdempotencyLookup {
	return func(ctx context.Context, key string, now time.Time) (bool, error) {
		rec, err := repo.GetChangeByIdempotencyKey(ctx, db, key)
		if err != nil || rec == nil {
			return false, nil
		}
		if now.Sub(rec.CreatedAt) > ttl {
			return false, nil
		}
		return true, nil
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
