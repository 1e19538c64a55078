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

	"ollamabridge/internal/api/ollama"
	"ollamabridge/internal/config"
	"ollamabridge/internal/server"
	"ollamabridge/internal/store"
	"ollamabridge/internal/telemetry"
	"ollamabridge/internal/tools"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.Init(logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.NewSQLite(cfg.Storage.SQLite.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	registry, err := tools.DefaultRegistry(tools.Options{
		HTTPTimeout: cfg.Tools.HTTPTimeout,
		ExecTimeout: cfg.Tools.ExecTimeout,
		Workspace:   cfg.Tools.Workspace,
		CacheSize:   cfg.Tools.CacheSize,
	}, st)
	if err != nil {
		log.Fatalf("Failed to build tool registry: %v", err)
	}

	client := ollama.NewClient(cfg.Ollama.Host)
	handler := server.NewHandler(client, registry, cfg, logger)

	srv := server.New(cfg.Server.Port, cfg.Server.AllowedOrigins, logger)
	srv.Router.Post("/api/chat/stream", handler.ChatStream)
	srv.Router.Get("/api/health", handler.Health)
	srv.Router.Get("/api/models", handler.ListModels)
	srv.Router.Post("/api/models/set", handler.SetModel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("bridge started",
		slog.Int("port", cfg.Server.Port),
		slog.String("ollama", cfg.Ollama.Host),
		slog.String("model", cfg.Ollama.Model),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	case <-sigChan:
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
