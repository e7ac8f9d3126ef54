package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

// Document represents a stored text with its embedding.
type Document struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Tags        []string        `json:"tags,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Embedding   pgvector.Vector `json:"-"`
	Model       *string         `json:"model,omitempty"`
	ContentHash string          `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DocumentCreateInput is the input for creating a document.
type DocumentCreateInput struct {
	Title     string
	Content   string
	Tags      []string
	Metadata  map[string]any
	Embedding *pgvector.Vector // nil when embedding failed; backfilled later
	Model     string
}

// DocumentUpdateInput is the input for updating a document. Nil fields are
// left unchanged.
type DocumentUpdateInput struct {
	Title     *string
	Content   *string
	Tags      []string
	Metadata  map[string]any
	Embedding *pgvector.Vector
	Model     *string
}

// DocumentFilter specifies filter criteria for listing documents.
type DocumentFilter struct {
	Tags   []string
	Limit  int
	Offset int
}

// DocumentMatch is a document with its similarity to a query embedding.
type DocumentMatch struct {
	Document
	Similarity float64 `json:"similarity"`
}

// ContentHash returns the SHA-256 hex digest of text, used to detect
// documents whose embedding no longer matches their embeddable text.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

// EmbedText builds the canonical embeddable text for a document, title first.
// Create, update and the reindex worker all embed and hash this exact text.
func EmbedText(d Document) string {
	var parts []string
	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	parts = append(parts, d.Content)
	return strings.Join(parts, ". ")
}

// DocumentStore provides document CRUD and vector search.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentCols = `id, title, content, tags, metadata, model, content_hash, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	d := &Document{}
	err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Tags, &d.Metadata, &d.Model,
		&d.ContentHash, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts a new document.
func (s *DocumentStore) Create(ctx context.Context, input DocumentCreateInput) (*Document, error) {
	var model *string
	if input.Embedding != nil && input.Model != "" {
		model = &input.Model
	}

	hash := ContentHash(EmbedText(Document{Title: input.Title, Content: input.Content}))
	var embeddedHash *string
	if input.Embedding != nil {
		embeddedHash = &hash
	}

	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO documents (title, content, tags, metadata, embedding, model, content_hash, embedded_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+documentCols,
		input.Title, input.Content, input.Tags, input.Metadata,
		input.Embedding, model, hash, embeddedHash,
	)

	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	return d, nil
}

// GetByID retrieves a document by ID. Returns nil when not found.
func (s *DocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT `+documentCols+` FROM documents
		WHERE id = $1 AND deleted_at IS NULL`, id)

	d, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return d, nil
}

// List retrieves documents with filters, newest first.
func (s *DocumentStore) List(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	var conditions []string
	var args []any
	argN := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d", argN))
		args = append(args, filter.Tags)
		argN++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT `+documentCols+` FROM documents
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d`,
		strings.Join(conditions, " AND "), limit, offset)

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Tags, &d.Metadata,
			&d.Model, &d.ContentHash, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Update modifies a document. Returns nil when not found.
func (s *DocumentStore) Update(ctx context.Context, id uuid.UUID, input DocumentUpdateInput) (*Document, error) {
	var setClauses []string
	var args []any
	argN := 1

	// Title and content both feed the embeddable text, so either change
	// moves content_hash. The current row is needed to hash the merged text.
	if input.Title != nil || input.Content != nil {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, nil
		}
		merged := *current
		if input.Title != nil {
			merged.Title = *input.Title
		}
		if input.Content != nil {
			merged.Content = *input.Content
		}
		hash := ContentHash(EmbedText(merged))
		setClauses = append(setClauses, fmt.Sprintf("content_hash = $%d", argN))
		args = append(args, hash)
		argN++
		if input.Embedding != nil {
			setClauses = append(setClauses, fmt.Sprintf("embedded_hash = $%d", argN))
			args = append(args, hash)
			argN++
		}
	}
	if input.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argN))
		args = append(args, *input.Title)
		argN++
	}
	if input.Content != nil {
		setClauses = append(setClauses, fmt.Sprintf("content = $%d", argN))
		args = append(args, *input.Content)
		argN++
	}
	if input.Tags != nil {
		setClauses = append(setClauses, fmt.Sprintf("tags = $%d", argN))
		args = append(args, input.Tags)
		argN++
	}
	if input.Metadata != nil {
		setClauses = append(setClauses, fmt.Sprintf("metadata = $%d", argN))
		args = append(args, input.Metadata)
		argN++
	}
	if input.Embedding != nil {
		setClauses = append(setClauses, fmt.Sprintf("embedding = $%d", argN))
		args = append(args, *input.Embedding)
		argN++
	}
	if input.Model != nil {
		setClauses = append(setClauses, fmt.Sprintf("model = $%d", argN))
		args = append(args, *input.Model)
		argN++
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}
	setClauses = append(setClauses, "updated_at = now()")

	query := fmt.Sprintf(`
		UPDATE documents SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING `+documentCols,
		strings.Join(setClauses, ", "), argN)
	args = append(args, id)

	d, err := scanDocument(s.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("updating document: %w", err)
	}
	return d, nil
}

// Delete soft-deletes a document. Returns false when not found.
func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE documents SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the number of live documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Search finds the documents nearest to a query embedding using cosine distance.
func (s *DocumentStore) Search(ctx context.Context, query pgvector.Vector, limit int, minSimilarity float64, tags []string) ([]DocumentMatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	maxDistance := 1.0 - minSimilarity

	var conditions []string
	args := []any{query, maxDistance}
	argN := 3

	conditions = append(conditions, "deleted_at IS NULL", "embedding IS NOT NULL",
		"embedding <=> $1 < $2")
	if len(tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d", argN))
		args = append(args, tags)
		argN++
	}

	sql := fmt.Sprintf(`
		SELECT `+documentCols+`, embedding <=> $1 AS distance
		FROM documents
		WHERE %s
		ORDER BY distance
		LIMIT %d`,
		strings.Join(conditions, " AND "), limit)

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var matches []DocumentMatch
	for rows.Next() {
		var m DocumentMatch
		var distance float64
		if err := rows.Scan(&m.ID, &m.Title, &m.Content, &m.Tags, &m.Metadata,
			&m.Model, &m.ContentHash, &m.CreatedAt, &m.UpdatedAt, &distance); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Similarity = 1.0 - distance
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// PendingEmbeddings returns documents whose embedding is missing or whose
// content hash no longer matches the stored vector. Used by the reindex worker.
func (s *DocumentStore) PendingEmbeddings(ctx context.Context, limit int) ([]Document, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+documentCols+` FROM documents
		WHERE deleted_at IS NULL
		  AND (embedding IS NULL OR embedded_hash IS DISTINCT FROM content_hash)
		ORDER BY updated_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending embeddings: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Tags, &d.Metadata,
			&d.Model, &d.ContentHash, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetEmbedding stores a freshly computed embedding for a document.
// sourceHash is the content hash the vector was computed from, so a concurrent
// content update keeps the document marked stale.
func (s *DocumentStore) SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector, model, sourceHash string) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE documents
		SET embedding = $2, model = $3, embedded_hash = $4
		WHERE id = $1 AND deleted_at IS NULL`,
		id, embedding, model, sourceHash)
	if err != nil {
		return fmt.Errorf("setting embedding %s: %w", id, err)
	}
	return nil
}
