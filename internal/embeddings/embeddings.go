// Package embeddings provides a swappable interface for text embedding generation.
package embeddings

import (
	"context"
	"math"
)

// Dimensions is the embedding vector size (384 = all-MiniLM-L6-v2).
// OpenAI text-embedding-3-small also supports 384 via the dimensions parameter.
const Dimensions = 384

// Provider generates embedding vectors for batches of texts.
type Provider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name for logging and cache keys.
	Name() string
}

// Cosine returns the cosine similarity between two vectors.
// Mismatched or zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales vec to unit L2 norm in place. Zero vectors are left untouched.
func Normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
