// Command server runs the chat proxy: the JSON/event-stream API under
// API_BASE_PATH and the static front-end from WEB_DIR.
//
// @title        chatproxy API
// @version      1.0
// @description  Authenticated chat proxy: accounts, conversation history and streamed model replies.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/chatproxy/internal/config"
	httpapi "github.com/tbourn/chatproxy/internal/http"
	"github.com/tbourn/chatproxy/internal/llm"
	"github.com/tbourn/chatproxy/internal/observability"
	"github.com/tbourn/chatproxy/internal/repo"
	"github.com/tbourn/chatproxy/internal/services"
	"github.com/tbourn/chatproxy/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if err := observability.InstrumentGORM(db, cfg.OTEL); err != nil {
		return err
	}

	model, err := llm.New(ctx, cfg.Model)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, model, cfg)

	go purgeSessions(ctx, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("model_provider", cfg.Model.Provider).
			Str("web_dir", cfg.WebDir).
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// purgeSessions deletes expired login sessions until ctx is done.
func purgeSessions(ctx context.Context, db *gorm.DB, cfg config.Config) {
	auth := services.NewAuthService(db, cfg.Session.Secret, cfg.Session.TTL, cfg.Session.BcryptCost)
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		n, err := auth.PurgeExpired(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn().Err(err).Msg("purge expired sessions")
		case n > 0:
			log.Info().Int64("purged", n).Msg("expired sessions removed")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
