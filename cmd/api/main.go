package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/editor"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/providers/genai"
	provimage "server/internal/providers/image"
	"server/internal/session"
	"server/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	var store session.Store
	switch cfg.SnapshotStore {
	case "fs":
		fileStore, err := storage.NewFileStore(cfg.SnapshotDir, cfg.SnapshotMaxBytes)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open snapshot directory")
		}
		store = fileStore
	default:
		db, err := infra.OpenDB(cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open snapshot database")
		}
		defer db.Close()
		store = repo.NewSnapshotRepo(db, cfg.SnapshotMaxBytes)
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}
	imageEditor := provimage.NewGeminiEditor(client, logger)

	sessions := editor.NewRegistry(store, imageEditor, session.Options{
		Delay:            cfg.AutosaveDelay,
		Window:           cfg.AutosaveWindow,
		ThumbnailDim:     cfg.ThumbnailMaxDim,
		ThumbnailQuality: cfg.ThumbnailQuality,
		Logger:           logger,
	}, logger)

	app := handlers.NewApp(sessions, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// Flush debounced snapshots before the process exits.
	sessions.CloseAll()
	logger.Info().Msg("server stopped")
}
