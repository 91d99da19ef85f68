package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/localllm/ollama-gateway/internal/backend/ollama"
	"github.com/localllm/ollama-gateway/internal/chunker"
	"github.com/localllm/ollama-gateway/internal/config"
	"github.com/localllm/ollama-gateway/internal/frontdoor"
	"github.com/localllm/ollama-gateway/internal/orchestrator"
	"github.com/localllm/ollama-gateway/internal/server"
	"github.com/localllm/ollama-gateway/internal/storage/sqlite"
	"github.com/localllm/ollama-gateway/internal/stream"
	"github.com/localllm/ollama-gateway/internal/telemetry"
	"github.com/localllm/ollama-gateway/internal/tokens"
	"github.com/localllm/ollama-gateway/internal/transcript"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("ollama-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	backend := ollama.NewClient(
		ollama.WithBaseURL(cfg.Backend.BaseURL),
		ollama.WithTimeout(cfg.Backend.Timeout),
	)

	var store transcript.Store
	if cfg.Storage.Type == "sqlite" {
		sqliteStore, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open transcript store: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info("transcript recording enabled", slog.String("path", cfg.Storage.SQLite.Path))
	}

	orch := orchestrator.New(
		backend,
		chunker.New(cfg.Gateway.ChunkWords),
		stream.NewEmitter(cfg.Gateway.ChunkDelay),
		cfg.Gateway.DefaultModel,
	)

	handler := frontdoor.NewHandler(orch, backend, store, tokens.NewCounter(), cfg.Models)

	srv := server.New(cfg.Server.Port, cfg.Server.RequestTimeout, logger)
	srv.Router.Post("/v1/chat/completions", handler.HandleChatCompletions)
	srv.Router.Get("/v1/models", handler.HandleListModels)
	srv.Router.Get("/health", handler.HandleHealth)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("gateway started",
		slog.Int("port", cfg.Server.Port),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.String("default_model", cfg.Gateway.DefaultModel),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigCh:
		logger.Info("shutdown signal received, stopping gateway")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("gateway shutdown complete")
}
