// Package main is the entry point for the Vectra embedding service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vectralabs/vectra/internal/api"
	"github.com/vectralabs/vectra/internal/cache"
	"github.com/vectralabs/vectra/internal/config"
	"github.com/vectralabs/vectra/internal/embeddings"
	"github.com/vectralabs/vectra/internal/events"
	"github.com/vectralabs/vectra/internal/reindex"
	"github.com/vectralabs/vectra/internal/server"
	"github.com/vectralabs/vectra/internal/store"
)

func main() {
	// Logger
	logLevel := slog.LevelInfo
	if os.Getenv("VECTRA_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedding provider
	var provider embeddings.Provider
	switch cfg.Backend {
	case "ollama":
		p, err := embeddings.NewOllamaProvider(cfg.Model)
		if err != nil {
			logger.Error("failed to initialize ollama provider", "error", err)
			os.Exit(1)
		}
		if err := p.CheckModel(ctx); err != nil {
			logger.Error("ollama model check failed", "model", cfg.Model, "error", err)
			os.Exit(1)
		}
		provider = p
	case "openai":
		provider = embeddings.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model)
	case "sidecar":
		provider = embeddings.NewSidecarProvider(cfg.SidecarURL)
	default:
		provider = embeddings.NewHashProvider()
	}
	if cfg.ModelCacheDir != "" {
		logger.Info("model cache directory configured", "dir", cfg.ModelCacheDir)
	}

	// Warmup: the model must be loadable before we serve traffic.
	warmupCtx, warmupCancel := context.WithTimeout(ctx, cfg.WarmupTimeout)
	if _, err := provider.Embed(warmupCtx, []string{"warmup"}); err != nil {
		warmupCancel()
		logger.Error("embedding backend unavailable at startup", "backend", provider.Name(), "error", err)
		os.Exit(1)
	}
	warmupCancel()
	logger.Info("embedding provider ready", "backend", provider.Name(), "model", cfg.Model, "dimensions", embeddings.Dimensions)

	// Embedding cache — optional
	var cachePinger api.Pinger
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("failed to connect to Redis, running without embedding cache", "error", err)
		} else {
			defer redisStore.Close()
			provider = cache.NewProvider(provider, redisStore, logger)
			cachePinger = redisStore
			logger.Info("embedding cache enabled", "ttl", cfg.CacheTTL.String())
		}
	}

	// Database — optional, document storage and search need it
	var db *store.DB
	if cfg.DatabaseURL != "" {
		db, err = store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("connected to database")
	} else {
		logger.Info("no database configured, document endpoints disabled")
	}

	// NATS — optional, service works without it
	var natsClient *events.Client
	if cfg.NatsURL != "" {
		natsClient, err = events.NewClient(cfg.NatsURL, logger)
		if err != nil {
			logger.Warn("failed to connect to NATS, running without event bus", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			logger.Info("connected to NATS", "url", cfg.NatsURL)
		}
	}

	// Reindex worker (needs a database)
	if db != nil && cfg.ReindexEnabled {
		worker := reindex.NewWorker(store.NewDocumentStore(db), provider, reindex.Config{
			Interval:  cfg.ReindexInterval,
			BatchSize: cfg.ReindexBatch,
		}, logger)
		worker.Start(ctx)
	}

	// Server
	srv := server.New(cfg, provider, db, natsClient, cachePinger, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down gracefully...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("Vectra starting", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Vectra stopped")
}
