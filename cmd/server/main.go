// Command server runs the haiku backend HTTP API.
//
// Boot sequence: load .env (best effort), parse configuration, configure
// zerolog, set up OpenTelemetry, construct the storage and generation
// services, mount the router, and serve with graceful shutdown on
// SIGINT/SIGTERM. A missing or unreachable table store never aborts startup;
// the storage service degrades and the API reports 503 on writes.
//
// @title           Haiku Backend API
// @version         1.0
// @description     REST API for generating and persisting haikus.
// @BasePath        /api/v1
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
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-haiku-backend/docs"
	"github.com/tbourn/go-haiku-backend/internal/config"
	httpapi "github.com/tbourn/go-haiku-backend/internal/http"
	"github.com/tbourn/go-haiku-backend/internal/observability"
	"github.com/tbourn/go-haiku-backend/internal/repo"
	"github.com/tbourn/go-haiku-backend/internal/services"
	"github.com/tbourn/go-haiku-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store := services.NewStorageService(cfg.Store.URL, cfg.Store.Key, httpapi.HaikuRepoShim{})
	if cfg.Store.Driver == "sqlite" {
		// Dev escape hatch: a local file instead of the hosted store. The
		// credentials only need to be non-blank to pass the gate.
		path := cfg.Store.SQLite
		store = services.NewStorageService(path, "local", httpapi.HaikuRepoShim{})
		store.OpenStore = func(_, _ string) (*gorm.DB, error) {
			db, err := repo.OpenSQLite(path)
			if err != nil {
				return nil, err
			}
			if err := repo.AutoMigrate(db); err != nil {
				return nil, err
			}
			return db, nil
		}
	}
	store.DefaultLimit = cfg.DefaultLimit

	gen := &services.GeneratorService{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, store, gen, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
