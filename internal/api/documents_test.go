package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/vectralabs/vectra/internal/embeddings"
	"github.com/vectralabs/vectra/internal/store"
)

// fakeDocuments is an in-memory Documents implementation.
type fakeDocuments struct {
	docs map[uuid.UUID]*store.Document
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{docs: make(map[uuid.UUID]*store.Document)}
}

func (f *fakeDocuments) Create(_ context.Context, input store.DocumentCreateInput) (*store.Document, error) {
	d := &store.Document{
		ID:      uuid.New(),
		Title:   input.Title,
		Content: input.Content,
		Tags:    input.Tags,
	}
	if input.Embedding != nil {
		d.Embedding = *input.Embedding
		model := input.Model
		d.Model = &model
	}
	f.docs[d.ID] = d
	return d, nil
}

func (f *fakeDocuments) GetByID(_ context.Context, id uuid.UUID) (*store.Document, error) {
	return f.docs[id], nil
}

func (f *fakeDocuments) List(_ context.Context, _ store.DocumentFilter) ([]store.Document, error) {
	var out []store.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDocuments) Update(_ context.Context, id uuid.UUID, input store.DocumentUpdateInput) (*store.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	if input.Title != nil {
		d.Title = *input.Title
	}
	if input.Content != nil {
		d.Content = *input.Content
	}
	if input.Embedding != nil {
		d.Embedding = *input.Embedding
	}
	return d, nil
}

func (f *fakeDocuments) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.docs[id]; !ok {
		return false, nil
	}
	delete(f.docs, id)
	return true, nil
}

func (f *fakeDocuments) Search(_ context.Context, query pgvector.Vector, limit int, minSimilarity float64, _ []string) ([]store.DocumentMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	var matches []store.DocumentMatch
	for _, d := range f.docs {
		if d.Embedding.Slice() == nil {
			continue
		}
		sim := embeddings.Cosine(query.Slice(), d.Embedding.Slice())
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, store.DocumentMatch{Document: *d, Similarity: sim})
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

func newDocsHandler(f *fakeDocuments) *DocumentsHandler {
	return NewDocumentsHandler(f, embeddings.NewHashProvider(), nil, slog.Default())
}

func docRouter(h *DocumentsHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/documents", h.Create)
	r.Get("/documents", h.List)
	r.Post("/documents/search", h.Search)
	r.Get("/documents/{id}", h.Get)
	r.Put("/documents/{id}", h.Update)
	r.Delete("/documents/{id}", h.Delete)
	return r
}

func TestDocuments_CreateEmbeds(t *testing.T) {
	fake := newFakeDocuments()
	r := docRouter(newDocsHandler(fake))

	req := httptest.NewRequest(http.MethodPost, "/documents",
		strings.NewReader(`{"title": "Greeting", "content": "hello world"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(fake.docs) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(fake.docs))
	}
	for _, d := range fake.docs {
		if len(d.Embedding.Slice()) != embeddings.Dimensions {
			t.Errorf("expected stored embedding with %d dims, got %d",
				embeddings.Dimensions, len(d.Embedding.Slice()))
		}
	}
}

func TestDocuments_CreateRequiresContent(t *testing.T) {
	r := docRouter(newDocsHandler(newFakeDocuments()))

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"title": "empty"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestDocuments_CreateWithFailingEmbedder(t *testing.T) {
	fake := newFakeDocuments()
	h := NewDocumentsHandler(fake, failingProvider{}, nil, slog.Default())
	r := docRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/documents",
		strings.NewReader(`{"content": "stored without vector"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Document stored anyway; the reindex worker fills in the vector later.
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	for _, d := range fake.docs {
		if d.Embedding.Slice() != nil {
			t.Error("expected no embedding when backend is down")
		}
	}
}

func TestDocuments_GetNotFound(t *testing.T) {
	r := docRouter(newDocsHandler(newFakeDocuments()))

	req := httptest.NewRequest(http.MethodGet, "/documents/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDocuments_InvalidID(t *testing.T) {
	r := docRouter(newDocsHandler(newFakeDocuments()))

	req := httptest.NewRequest(http.MethodGet, "/documents/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDocuments_DeleteRoundTrip(t *testing.T) {
	fake := newFakeDocuments()
	r := docRouter(newDocsHandler(fake))

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"content": "to delete"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var created struct {
		Data store.Document `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/documents/"+created.Data.ID.String(), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/documents/"+created.Data.ID.String(), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on double delete, got %d", w.Code)
	}
}

func createDoc(t *testing.T, r http.Handler, body string) uuid.UUID {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		Data store.Document `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decoding create response: %v", err)
	}
	return created.Data.ID
}

func canonicalVector(t *testing.T, d store.Document) []float32 {
	t.Helper()
	vecs, err := embeddings.NewHashProvider().Embed(context.Background(), []string{store.EmbedText(d)})
	if err != nil {
		t.Fatalf("embedding canonical text: %v", err)
	}
	return vecs[0]
}

func TestDocuments_UpdateContentKeepsTitleInEmbedText(t *testing.T) {
	fake := newFakeDocuments()
	r := docRouter(newDocsHandler(fake))

	id := createDoc(t, r, `{"title": "Greeting", "content": "hello world"}`)

	req := httptest.NewRequest(http.MethodPut, "/documents/"+id.String(),
		strings.NewReader(`{"content": "goodbye world"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := canonicalVector(t, store.Document{Title: "Greeting", Content: "goodbye world"})
	got := fake.docs[id].Embedding.Slice()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stored vector diverges from title-and-content embed text at dim %d", i)
		}
	}
}

func TestDocuments_UpdateTitleReembeds(t *testing.T) {
	fake := newFakeDocuments()
	r := docRouter(newDocsHandler(fake))

	id := createDoc(t, r, `{"title": "Greeting", "content": "hello world"}`)

	req := httptest.NewRequest(http.MethodPut, "/documents/"+id.String(),
		strings.NewReader(`{"title": "Farewell"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := canonicalVector(t, store.Document{Title: "Farewell", Content: "hello world"})
	got := fake.docs[id].Embedding.Slice()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("title-only update should re-embed, vector diverges at dim %d", i)
		}
	}
}

func TestDocuments_SearchFindsRelated(t *testing.T) {
	fake := newFakeDocuments()
	r := docRouter(newDocsHandler(fake))

	for _, content := range []string{
		"the quick brown fox jumps over the lazy dog",
		"completely unrelated quantum chromodynamics paper",
	} {
		req := httptest.NewRequest(http.MethodPost, "/documents",
			strings.NewReader(`{"content": "`+content+`"}`))
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents/search",
		strings.NewReader(`{"query": "the quick brown fox jumps over the lazy dog", "min_similarity": 0.9}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data []store.DocumentMatch `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("expected 1 match above threshold, got %d", len(resp.Data))
	}
	if resp.Data[0].Similarity < 0.9 {
		t.Errorf("expected similarity >= 0.9, got %f", resp.Data[0].Similarity)
	}
}

func TestDocuments_SearchRequiresQuery(t *testing.T) {
	r := docRouter(newDocsHandler(newFakeDocuments()))

	req := httptest.NewRequest(http.MethodPost, "/documents/search", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}
