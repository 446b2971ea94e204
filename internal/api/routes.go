// Package api provides the HTTP API for the Skillgate server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/api/handlers"
	"github.com/skillgate/skillgate/internal/api/middleware"
	"github.com/skillgate/skillgate/internal/license"
	"github.com/skillgate/skillgate/internal/ratelimit"
)

// Config holds configuration for the API router.
type Config struct {
	// GlobalRateLimitRequests caps requests per IP before any quota logic.
	GlobalRateLimitRequests int64
	// GlobalRateLimitPeriod is a duration string (e.g. "1m").
	GlobalRateLimitPeriod string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GlobalRateLimitRequests: 300,
		GlobalRateLimitPeriod:   "1m",
	}
}

// Router wraps a gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(
	cfg Config,
	issuer *license.Issuer,
	validator *license.Validator,
	store license.Store,
	limiter *ratelimit.Limiter,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))

	global, err := middleware.NewGlobalRateLimiter(cfg.GlobalRateLimitRequests, cfg.GlobalRateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(global)

	r.Engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	licenseHandler := handlers.NewLicenseHandler(issuer, validator, store, logger)

	v1 := r.Engine.Group("/api/v1")
	v1.Use(ratelimit.Middleware(limiter, "api", nil))
	licenseHandler.RegisterRoutes(v1)

	return r, nil
}
