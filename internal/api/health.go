package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vectralabs/vectra/internal/events"
	"github.com/vectralabs/vectra/internal/store"
)

// Counters tracks embed activity for the stats endpoint.
type Counters struct {
	EmbedRequests atomic.Int64
	TextsEmbedded atomic.Int64
}

// Pinger is anything with a health check (the Redis cache store).
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// DocumentCounter is the slice of the document store the stats endpoint needs.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthHandler provides health and stats endpoints.
type HealthHandler struct {
	backend   string
	db        *store.DB
	documents DocumentCounter
	nats      *events.Client
	cache     Pinger
	counters  *Counters
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. db, nats and cache may be nil
// when the corresponding backend is not configured.
func NewHealthHandler(backend string, db *store.DB, documents DocumentCounter, natsClient *events.Client, cache Pinger, counters *Counters) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		db:        db,
		documents: documents,
		nats:      natsClient,
		cache:     cache,
		counters:  counters,
		startTime: time.Now(),
	}
}

// Health returns the service health status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := map[string]any{
		"status":         "healthy",
		"backend":        h.backend,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}

	if h.db != nil {
		dbStatus := "connected"
		if err := h.db.HealthCheck(ctx); err != nil {
			dbStatus = "disconnected"
			resp["status"] = "degraded"
		}
		resp["database"] = dbStatus
	}

	if h.nats != nil {
		natsStatus := "disconnected"
		if h.nats.IsConnected() {
			natsStatus = "connected"
		}
		resp["nats"] = natsStatus
	}

	if h.cache != nil {
		cacheStatus := "connected"
		if err := h.cache.HealthCheck(ctx); err != nil {
			cacheStatus = "disconnected"
		}
		resp["cache"] = cacheStatus
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats returns detailed service statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"backend":        h.backend,
		"embed_requests": h.counters.EmbedRequests.Load(),
		"texts_embedded": h.counters.TextsEmbedded.Load(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}

	// A failed count omits the field rather than reporting zero documents.
	if h.documents != nil {
		if count, err := h.documents.Count(r.Context()); err == nil {
			resp["document_count"] = count
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
