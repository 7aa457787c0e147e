package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"trainvoc/config"
	"trainvoc/database"
	"trainvoc/game"
	"trainvoc/handlers"
	"trainvoc/logger"
	"trainvoc/middleware"
	"trainvoc/services"
)

func main() {
	configPath := flag.String("config", "", "path to server.yaml (default: search ./config and .)")
	flag.Parse()

	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info", "console")
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if envErr != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}
	validateEnvironment(cfg)

	var db *gorm.DB
	if cfg.Database.URL != "" {
		db, err = database.Connect(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer database.Close(db)
	}

	var (
		words  game.WordProvider
		levels handlers.LevelLister
	)
	switch cfg.Words.Source {
	case config.WordSourceDatabase:
		provider := services.NewDBWordProvider(db)
		words, levels = provider, provider
	default:
		bank, err := services.LoadWordBank(cfg.Words.Dir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load word bank")
		}
		words, levels = bank, bank
	}

	tokens := middleware.NewSessionTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	opts := game.Options{
		Config: cfg.Game.Engine(),
		Words:  words,
		Tokens: tokens,
	}
	var history handlers.HistoryReader
	if db != nil {
		recorder := services.NewHistoryRecorder(db, 64)
		recorder.Start()
		defer recorder.Stop()
		opts.OnFinished = recorder.Record
		history = recorder
	}
	reg := game.NewRegistry(opts)

	httpLimits := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
	wsLimits := middleware.NewRateLimiter(cfg.Server.WSMessageRate, cfg.Server.WSMessageBurst)

	cleanup := services.NewCleanupService(reg,
		cfg.Game.ReaperInterval, cfg.Game.FinishedRoomTTL, cfg.Game.IdleRoomTimeout,
		func() { httpLimits.Cleanup(30 * time.Minute) },
	)
	cleanup.Start()
	defer cleanup.Stop()

	app := handlers.NewApp(handlers.AppConfig{
		Registry:    reg,
		Tokens:      tokens,
		HTTPLimits:  httpLimits,
		WSLimits:    wsLimits,
		Words:       levels,
		History:     history,
		PublicURL:   cfg.Server.PublicURL,
		CORSOrigins: cfg.Server.CORSOrigins,
		SendBuffer:  cfg.Game.SendBuffer,
		Production:  os.Getenv("APP_ENV") == "production",
		AccessLog:   cfg.Server.LogLevel == "debug",
		AdminKey:    cfg.Auth.AdminKey,
		Cleanup:     cleanup,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info().Msg("🛑 shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		reg.Shutdown(shutdownCtx)
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP shutdown failed")
		}
	}()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Info().
		Str("addr", addr).
		Str("words", cfg.Words.Source).
		Bool("history", db != nil).
		Dur("reconnect_grace", cfg.Game.ReconnectGrace).
		Msg("🚀 HTTP server starting")
	log.Info().Msgf("🌐 WebSocket available at ws://%s/ws", addr)

	if err := app.Listen(addr); err != nil {
		log.Error().Err(err).Msg("failed to start HTTP server")
	}
}

// validateEnvironment checks settings that are legal but unsafe.
func validateEnvironment(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, session tokens use the development secret")
	} else if len(cfg.Auth.JWTSecret) < 32 {
		log.Warn().Msg("JWT_SECRET should be at least 32 characters long")
	}
	if cfg.Auth.AdminKey != "" && len(cfg.Auth.AdminKey) < 16 {
		log.Warn().Msg("ADMIN_KEY is short, admin API is easy to guess")
	}

	if os.Getenv("APP_ENV") == "production" {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal().Msg("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
		}
		if cfg.Server.CORSOrigins == "" || cfg.Server.CORSOrigins == "http://localhost:3000" {
			log.Warn().Msg("CORS_ORIGINS not properly configured for production")
		}
	}
}
