// Package server provides the HTTP server setup for Vectra.
package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vectralabs/vectra/internal/api"
	"github.com/vectralabs/vectra/internal/config"
	"github.com/vectralabs/vectra/internal/embeddings"
	"github.com/vectralabs/vectra/internal/events"
	"github.com/vectralabs/vectra/internal/middleware"
	"github.com/vectralabs/vectra/internal/store"
)

// Server holds all dependencies for the Vectra HTTP server.
type Server struct {
	Router    *chi.Mux
	Config    *config.Config
	DB        *store.DB
	Publisher *events.Publisher
	Logger    *slog.Logger
}

// New creates a new Server with all routes configured. db, natsClient and
// cachePinger may be nil; document routes are only mounted when a database
// is available.
func New(cfg *config.Config, provider embeddings.Provider, db *store.DB, natsClient *events.Client, cachePinger api.Pinger, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.APIKeyAuth(cfg.APIKey))

	// Publisher (may be nil if NATS not available)
	var publisher *events.Publisher
	if natsClient != nil {
		publisher = events.NewPublisher(natsClient, logger)
	}

	var documents *store.DocumentStore
	if db != nil {
		documents = store.NewDocumentStore(db)
	}

	// Handlers
	counters := &api.Counters{}
	var docCounter api.DocumentCounter
	if documents != nil {
		docCounter = documents
	}
	healthHandler := api.NewHealthHandler(provider.Name(), db, docCounter, natsClient, cachePinger, counters)
	embedHandler := api.NewEmbedHandler(provider, publisher, api.Limits{
		MaxBatchSize: cfg.MaxBatchSize,
		MaxTextBytes: cfg.MaxTextBytes,
	}, counters, logger)

	// Rate limiters
	embedRL := middleware.NewRateLimiter(cfg.EmbedRateLimit, cfg.RateWindow)
	searchRL := middleware.NewRateLimiter(cfg.SearchRateLimit, cfg.RateWindow)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (no rate limit)
		r.Get("/health", healthHandler.Health)
		r.Get("/stats", healthHandler.Stats)

		r.Group(func(r chi.Router) {
			r.Use(embedRL.Middleware)
			r.Post("/embed", embedHandler.Embed)
			r.Post("/similarity", embedHandler.Similarity)
		})

		if documents != nil {
			docHandler := api.NewDocumentsHandler(documents, provider, publisher, logger)
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", docHandler.Create)
				r.Get("/", docHandler.List)
				r.Get("/{id}", docHandler.Get)
				r.Put("/{id}", docHandler.Update)
				r.Delete("/{id}", docHandler.Delete)

				r.Group(func(r chi.Router) {
					r.Use(searchRL.Middleware)
					r.Post("/search", docHandler.Search)
				})
			})
		}
	})

	return &Server{
		Router:    r,
		Config:    cfg,
		DB:        db,
		Publisher: publisher,
		Logger:    logger,
	}
}
