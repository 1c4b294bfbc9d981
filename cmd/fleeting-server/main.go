package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetingblog/fleeting/pkg/fleeting/auth"
	"github.com/fleetingblog/fleeting/pkg/fleeting/config"
	"github.com/fleetingblog/fleeting/pkg/fleeting/database"
	"github.com/fleetingblog/fleeting/pkg/fleeting/errs"
	"github.com/fleetingblog/fleeting/pkg/fleeting/logging"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/reaper"
	"github.com/fleetingblog/fleeting/pkg/fleeting/server"
	"github.com/fleetingblog/fleeting/pkg/fleeting/tags"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"
)

// @title Fleeting API
// @version 1.0
// @description An ephemeral blogging backend: posts vanish 24 hours after they are published.

// @contact.name Fleeting Maintainers
// @contact.url https://github.com/fleetingblog/fleeting

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)
	errs.SetDebug(cfg.Debug)
	auth.Configure(cfg.JWTSecret, cfg.TokenTTL)

	gormLevel := logger.Warn
	if cfg.Debug {
		gormLevel = logger.Info
	}
	if err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN, gormLevel); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed to connect to database")
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Database migrations completed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedTags {
		created, err := tags.NewRegistry(db).Seed(ctx, tags.Vocabulary)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed tags")
		}
		log.Info().Int("created", created).Int("vocabulary", len(tags.Vocabulary)).Msg("Tag vocabulary seeded")
	}

	engine := server.New(db, cfg)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.WithCORS(engine, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Starting Fleeting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reaper.NewRunner(reaper.New(db), cfg.ReapInterval).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}
