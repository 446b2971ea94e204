// Package main is the entrypoint for the Skillgate server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/api"
	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/license"
	"github.com/skillgate/skillgate/internal/ratelimit"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 1
	}

	if cfg.Environment == config.EnvDevelopment {
		logger = logger.Level(zerolog.DebugLevel)
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Str("env", string(cfg.Environment)).
		Msg("starting skillgate server")

	store, err := license.NewPGStore(ctx, license.DefaultPoolConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return 1
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The limiter degrades per its failure policy; the server still
		// starts so licensing stays available.
		logger.Warn().Err(err).Msg("redis unreachable at startup, rate limiting degraded")
	}

	secret := []byte(cfg.SigningSecret)
	issuer := license.NewIssuer(store, secret, logger)
	validator := license.NewValidator(store, secret, logger)
	limiter := ratelimit.New(rdb, ratelimit.DefaultClasses(), logger)

	router, err := api.NewRouter(api.Config{
		GlobalRateLimitRequests: cfg.GlobalRateLimitRequests,
		GlobalRateLimitPeriod:   cfg.GlobalRateLimitPeriod,
	}, issuer, validator, store, limiter, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			return 1
		}
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
			return 1
		}
	}

	logger.Info().Msg("server stopped")
	return 0
}
