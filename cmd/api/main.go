package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xstream/internal/app"
	"xstream/internal/http/handlers"
	httpapi "xstream/internal/http/httpapi"
	"xstream/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	// Cancelling ctx stops the server and abandons running video jobs.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}
	defer services.Close()
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set; generation fails until a key is stored")
	}

	handlerApp := handlers.NewApp(services.Registry, services.Blobs, &logger)
	handlerApp.Background = ctx

	router := httpapi.NewRouter(handlerApp, httpapi.Options{
		Logger:             &logger,
		DefaultLocale:      cfg.DefaultLocale,
		CountryLookup:      services.CountryLookup(),
		RateLimitPerMinute: cfg.RateLimitPerMin,
		CORSOrigins:        cfg.CORSOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().Str("addr", server.Addr()).Msg("API listening")
	if err := server.Run(ctx, 15*time.Second); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
