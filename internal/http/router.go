// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers and login sessions.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - The API and the static front-end share one origin, so the session
//     cookie works without CORS in the default deployment
package httpapi

import (
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

	"github.com/tbourn/chatproxy/docs"
	"github.com/tbourn/chatproxy/internal/config"
	"github.com/tbourn/chatproxy/internal/http/handlers"
	"github.com/tbourn/chatproxy/internal/http/middleware"
	"github.com/tbourn/chatproxy/internal/llm"
	"github.com/tbourn/chatproxy/internal/services"
)

// maxBodyBytes caps request bodies on every route.
const maxBodyBytes = 1 << 20

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: health, metrics and (optionally) Swagger, the API under
// cfg.APIBasePath, and the static front-end as the NoRoute fallback.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and Security headers
//  8. Session: resolve the login cookie (never rejects)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, model llm.Streamer, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics("/metrics", "/health"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Dependency injection: services ← db/model
	authSvc := services.NewAuthService(db, cfg.Session.Secret, cfg.Session.TTL, cfg.Session.BcryptCost)
	histSvc := services.NewHistoryService(db)
	chatSvc := services.NewChatService(histSvc, model, cfg.Model.DefaultModel, cfg.Model.MaxPromptRunes, cfg.Model.Timeout)
	h := handlers.New(authSvc, histSvc, chatSvc, handlers.CookieOptions{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.Session.CookieSecure,
	}, cfg.WebDir)

	// 8) Login sessions
	r.Use(middleware.Session(authSvc, cfg.Session.CookieName))

	// Fallbacks: unmatched GETs are front-end assets.
	r.NoRoute(
		gzip.Gzip(gzip.DefaultCompression),
		middleware.ContentSecurityPolicy(middleware.DefaultCSP),
		h.Static,
	)
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true, EnablePolicy: true}))
	{
		api.GET("/auth/status", h.AuthStatus)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/signup", h.Signup)

		authed := api.Group("", middleware.RequireAuthenticated())
		authed.POST("/auth/logout", h.Logout)
		authed.POST("/generate", h.Generate)
		authed.GET("/history/", h.GetAllHistory)
		authed.GET("/history/:session_id", h.GetHistory)
		authed.DELETE("/history/:session_id", h.DeleteHistory)
	}
}

// corsMiddleware returns the CORS stack. With no configured origins any
// origin may call the API but without credentials, which leaves the session
// cookie same-origin only. Listed origins may send credentials.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag"}
	methods := []string{"GET", "POST", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	return []gin.HandlerFunc{
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
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
