package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/vectralabs/vectra/internal/embeddings"
	"github.com/vectralabs/vectra/internal/events"
	"github.com/vectralabs/vectra/internal/store"
)

// Documents is the persistence surface the handlers need.
// Implemented by *store.DocumentStore.
type Documents interface {
	Create(ctx context.Context, input store.DocumentCreateInput) (*store.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*store.Document, error)
	List(ctx context.Context, filter store.DocumentFilter) ([]store.Document, error)
	Update(ctx context.Context, id uuid.UUID, input store.DocumentUpdateInput) (*store.Document, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Search(ctx context.Context, query pgvector.Vector, limit int, minSimilarity float64, tags []string) ([]store.DocumentMatch, error)
}

// DocumentsHandler provides document CRUD and semantic search endpoints.
type DocumentsHandler struct {
	documents Documents
	embedder  embeddings.Provider
	publisher *events.Publisher
	logger    *slog.Logger
}

// NewDocumentsHandler creates a new DocumentsHandler. publisher may be nil.
func NewDocumentsHandler(documents Documents, embedder embeddings.Provider, publisher *events.Publisher, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{
		documents: documents,
		embedder:  embedder,
		publisher: publisher,
		logger:    logger,
	}
}

// DocumentCreateRequest is the request body for creating a document.
type DocumentCreateRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Create handles POST /documents.
func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req DocumentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Content is required")
		return
	}
	if len(req.Content) > 102400 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Content exceeds 100KB limit")
		return
	}

	input := store.DocumentCreateInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Metadata: req.Metadata,
		Model:    h.embedder.Name(),
	}

	// Embed inline; on failure store without a vector and let the reindex
	// worker fill it in.
	text := store.EmbedText(store.Document{Title: req.Title, Content: req.Content})
	vecs, err := h.embedder.Embed(r.Context(), []string{text})
	if err != nil {
		h.logger.Warn("inline embedding failed, deferring to reindex", "error", err)
	} else {
		vec := pgvector.NewVector(vecs[0])
		input.Embedding = &vec
	}

	doc, err := h.documents.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("document create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create document")
		return
	}

	if h.publisher != nil {
		_ = h.publisher.DocumentCreated(r.Context(), doc.ID, input.Embedding != nil)
	}

	writeSuccess(w, http.StatusCreated, doc)
}

// List handles GET /documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.DocumentFilter{Limit: 50}
	if v := q["tag"]; len(v) > 0 {
		filter.Tags = v
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	docs, err := h.documents.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("document list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}

	writeSuccess(w, http.StatusOK, docs)
}

// Get handles GET /documents/{id}.
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid document ID")
		return
	}

	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("document get failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get document")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "No document with ID '"+id.String()+"'")
		return
	}

	writeSuccess(w, http.StatusOK, doc)
}

// DocumentUpdateRequest is the request body for updating a document.
type DocumentUpdateRequest struct {
	Title    *string        `json:"title,omitempty"`
	Content  *string        `json:"content,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Update handles PUT /documents/{id}.
func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid document ID")
		return
	}

	var req DocumentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	input := store.DocumentUpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	}

	// Title and content both feed the embeddable text, so either change
	// re-embeds the merged row. Failures leave the document stale for the
	// reindex worker.
	if req.Title != nil || req.Content != nil {
		existing, err := h.documents.GetByID(r.Context(), id)
		if err != nil {
			h.logger.Error("document get failed", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update document")
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "No document with ID '"+id.String()+"'")
			return
		}

		merged := *existing
		if req.Title != nil {
			merged.Title = *req.Title
		}
		if req.Content != nil {
			merged.Content = *req.Content
		}
		vecs, err := h.embedder.Embed(r.Context(), []string{store.EmbedText(merged)})
		if err == nil {
			vec := pgvector.NewVector(vecs[0])
			model := h.embedder.Name()
			input.Embedding = &vec
			input.Model = &model
		}
	}

	doc, err := h.documents.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("document update failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update document")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "No document with ID '"+id.String()+"'")
		return
	}

	if h.publisher != nil {
		_ = h.publisher.DocumentUpdated(r.Context(), doc.ID)
	}

	writeSuccess(w, http.StatusOK, doc)
}

// Delete handles DELETE /documents/{id}.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid document ID")
		return
	}

	deleted, err := h.documents.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("document delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete document")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "No document with ID '"+id.String()+"'")
		return
	}

	if h.publisher != nil {
		_ = h.publisher.DocumentDeleted(r.Context(), id)
	}

	writeSuccess(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// SearchRequest is the request body for semantic search.
type SearchRequest struct {
	Query         string   `json:"query"`
	Limit         int      `json:"limit,omitempty"`
	MinSimilarity float64  `json:"min_similarity,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Search handles POST /documents/search.
func (h *DocumentsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Query is required")
		return
	}

	vecs, err := h.embedder.Embed(r.Context(), []string{req.Query})
	if err != nil {
		h.logger.Error("query embedding failed", "error", err)
		writeError(w, http.StatusBadGateway, "EMBEDDING_FAILED", "Embedding backend unavailable")
		return
	}

	matches, err := h.documents.Search(r.Context(), pgvector.NewVector(vecs[0]), req.Limit, req.MinSimilarity, req.Tags)
	if err != nil {
		h.logger.Error("document search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search documents")
		return
	}
	if matches == nil {
		matches = []store.DocumentMatch{}
	}

	if h.publisher != nil {
		_ = h.publisher.SearchPerformed(r.Context(), len(matches))
	}

	writeSuccess(w, http.StatusOK, matches)
}
