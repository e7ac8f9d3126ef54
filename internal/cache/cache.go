// Package cache provides an exact-match embedding cache layered over a Provider.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/vectralabs/vectra/internal/embeddings"
)

// Store holds cached vectors keyed by text digest.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Key derives the cache key for a model/text pair.
func Key(model, text string) string {
	h := sha256.Sum256([]byte(model + ":" + text))
	return fmt.Sprintf("emb:%x", h)
}

// Provider wraps an embeddings.Provider with a cache. Hits are served from the
// store; misses fall through to the inner provider in a single batch.
type Provider struct {
	inner  embeddings.Provider
	store  Store
	logger *slog.Logger
}

// NewProvider creates a caching provider.
func NewProvider(inner embeddings.Provider, store Store, logger *slog.Logger) *Provider {
	return &Provider{inner: inner, store: store, logger: logger}
}

// Name returns the inner provider name; the cache is transparent.
func (p *Provider) Name() string {
	return p.inner.Name()
}

// Embed serves cached vectors and embeds only the misses. Cache errors are
// logged and treated as misses; a failed Set never fails the request.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		vec, ok, err := p.store.Get(ctx, Key(p.inner.Name(), text))
		if err != nil {
			p.logger.Warn("cache get failed", "error", err)
		}
		if err == nil && ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := p.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := p.store.Set(ctx, Key(p.inner.Name(), texts[i]), vecs[j]); err != nil {
			p.logger.Warn("cache set failed", "error", err)
		}
	}

	return out, nil
}
