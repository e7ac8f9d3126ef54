// Package reindex runs background re-embedding of documents whose vectors are
// missing or stale.
package reindex

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/vectralabs/vectra/internal/embeddings"
	"github.com/vectralabs/vectra/internal/store"
)

// Store is the slice of the document store the worker needs.
type Store interface {
	PendingEmbeddings(ctx context.Context, limit int) ([]store.Document, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector, model, sourceHash string) error
}

// Config holds worker settings.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Worker periodically embeds pending documents.
type Worker struct {
	docs     Store
	provider embeddings.Provider
	config   Config
	logger   *slog.Logger
}

// NewWorker creates a reindex worker.
func NewWorker(docs Store, provider embeddings.Provider, cfg Config, logger *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{docs: docs, provider: provider, config: cfg, logger: logger}
}

// Start launches the background loop. It runs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("reindex worker starting", "interval", w.config.Interval.String())
	go w.runLoop(ctx)
}

func (w *Worker) runLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Run once immediately
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Warn("reindex initial run", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reindex worker shutting down")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Warn("reindex pass failed", "error", err)
			}
		}
	}
}

// RunOnce embeds a single batch of pending documents.
func (w *Worker) RunOnce(ctx context.Context) error {
	docs, err := w.docs.PendingEmbeddings(ctx, w.config.BatchSize)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	w.logger.Info("reindexing documents", "count", len(docs))

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = store.EmbedText(d)
	}

	vecs, err := w.provider.Embed(ctx, texts)
	if err != nil {
		return err
	}

	stored := 0
	for i, d := range docs {
		if i >= len(vecs) || vecs[i] == nil {
			continue
		}
		hash := store.ContentHash(store.EmbedText(d))
		if err := w.docs.SetEmbedding(ctx, d.ID, pgvector.NewVector(vecs[i]), w.provider.Name(), hash); err != nil {
			w.logger.Warn("reindex store failed", "id", d.ID, "error", err)
			continue
		}
		stored++
	}

	w.logger.Info("reindexed documents", "stored", stored)
	return nil
}
