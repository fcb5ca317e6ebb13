package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sorahub/internal/http/handlers"
	"sorahub/internal/http/httpapi"
	"sorahub/internal/infra"
	"sorahub/internal/sora"
	"sorahub/internal/storage"
	"sorahub/internal/store"
)

func main() {
	// Load .env when present.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	uploads, err := storage.NewUploadStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload dir")
	}

	client, err := sora.NewClient(sora.Options{
		APIKey:         cfg.SoraAPIKey,
		BaseURL:        cfg.SoraBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.StreamTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build sora client")
	}

	ctx := context.Background()

	// Jobs live in Postgres when a database is configured, otherwise in
	// process memory.
	var jobs store.JobStore = store.NewMemory()
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()

		pg := store.NewPostgres(dbpool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare job table")
		}
		jobs = pg
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory job store")
	}

	app := handlers.NewApp(cfg, logger, client, jobs, uploads)
	app.ChatClient = &http.Client{Timeout: cfg.StreamTimeout}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
