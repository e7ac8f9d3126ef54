package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
)

// HashProvider generates embeddings by hashing tokens into vector dimensions.
// Not semantically meaningful, but deterministic and offline — identical input
// always yields an identical vector, which makes it the default for development
// and tests.
type HashProvider struct{}

// NewHashProvider creates a new HashProvider.
func NewHashProvider() *HashProvider {
	return &HashProvider{}
}

// Name returns the provider name.
func (p *HashProvider) Name() string {
	return "hash"
}

// Embed generates a pseudo-embedding per text by hashing words into dimension
// indexes and accumulating, then L2-normalizing. Bigrams are added at half
// weight to capture some word ordering.
func (p *HashProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *HashProvider) embedOne(text string) []float32 {
	vec := make([]float32, Dimensions)
	words := tokenize(text)

	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		idx := h.Sum64() % uint64(Dimensions)
		vec[idx] += 1.0
	}

	for i := 0; i < len(words)-1; i++ {
		bigram := words[i] + " " + words[i+1]
		h := fnv.New64a()
		h.Write([]byte(bigram))
		idx := h.Sum64() % uint64(Dimensions)
		vec[idx] += 0.5
	}

	Normalize(vec)
	return vec
}

// tokenize splits text into lowercase word tokens of at least two characters.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	for _, c := range ".,;:!?()[]{}\"'`~@#$%^&*+=|\\/<>" {
		text = strings.ReplaceAll(text, string(c), " ")
	}
	fields := strings.Fields(text)
	var result []string
	for _, f := range fields {
		if len(f) >= 2 {
			result = append(result, f)
		}
	}
	return result
}
