package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vectralabs/vectra/internal/embeddings"
	"github.com/vectralabs/vectra/internal/events"
)

// Limits bounds a single embed request.
type Limits struct {
	MaxBatchSize int
	MaxTextBytes int
}

// EmbedHandler provides the embed and similarity endpoints.
type EmbedHandler struct {
	provider  embeddings.Provider
	publisher *events.Publisher
	limits    Limits
	counters  *Counters
	logger    *slog.Logger
}

// NewEmbedHandler creates a new EmbedHandler. publisher may be nil.
func NewEmbedHandler(provider embeddings.Provider, publisher *events.Publisher, limits Limits, counters *Counters, logger *slog.Logger) *EmbedHandler {
	if limits.MaxBatchSize <= 0 {
		limits.MaxBatchSize = 256
	}
	if limits.MaxTextBytes <= 0 {
		limits.MaxTextBytes = 32768
	}
	return &EmbedHandler{
		provider:  provider,
		publisher: publisher,
		limits:    limits,
		counters:  counters,
		logger:    logger,
	}
}

// EmbedRequest is the request body for the embed endpoint.
type EmbedRequest struct {
	Texts []string `json:"texts"`
}

// EmbedResponse is the embed endpoint payload.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
}

// Embed handles POST /embed.
func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if len(req.Texts) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "At least one text is required")
		return
	}
	if len(req.Texts) > h.limits.MaxBatchSize {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Batch exceeds maximum size")
		return
	}
	for _, text := range req.Texts {
		if len(text) > h.limits.MaxTextBytes {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Text exceeds maximum length")
			return
		}
	}

	vecs, err := h.provider.Embed(r.Context(), req.Texts)
	if err != nil {
		h.logger.Error("embedding failed", "backend", h.provider.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "EMBEDDING_FAILED", "Embedding backend unavailable")
		return
	}

	h.counters.EmbedRequests.Add(1)
	h.counters.TextsEmbedded.Add(int64(len(req.Texts)))

	if h.publisher != nil {
		_ = h.publisher.EmbedBatch(r.Context(), h.provider.Name(), len(req.Texts))
	}

	writeSuccess(w, http.StatusOK, EmbedResponse{
		Embeddings: vecs,
		Model:      h.provider.Name(),
		Dimensions: embeddings.Dimensions,
	})
}

// SimilarityRequest is the request body for the similarity endpoint.
type SimilarityRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Similarity handles POST /similarity.
func (h *EmbedHandler) Similarity(w http.ResponseWriter, r *http.Request) {
	var req SimilarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.A == "" || req.B == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Both 'a' and 'b' are required")
		return
	}

	vecs, err := h.provider.Embed(r.Context(), []string{req.A, req.B})
	if err != nil {
		h.logger.Error("embedding failed", "backend", h.provider.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "EMBEDDING_FAILED", "Embedding backend unavailable")
		return
	}

	h.counters.EmbedRequests.Add(1)
	h.counters.TextsEmbedded.Add(2)

	writeSuccess(w, http.StatusOK, map[string]any{
		"similarity": embeddings.Cosine(vecs[0], vecs[1]),
		"model":      h.provider.Name(),
	})
}
