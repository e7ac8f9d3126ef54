package embeddings

import (
	"context"
	"fmt"

	ollama "github.com/ollama/ollama/api"
)

// OllamaProvider generates embeddings using a local Ollama runner.
// The default model "all-minilm" carries the all-MiniLM-L6-v2 weights
// and produces 384-dim vectors.
type OllamaProvider struct {
	model  string
	client *ollama.Client
}

// NewOllamaProvider creates an Ollama embedding provider. The runner address
// is taken from OLLAMA_HOST per the client's environment convention.
func NewOllamaProvider(model string) (*OllamaProvider, error) {
	if model == "" {
		model = "all-minilm"
	}
	client, err := ollama.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &OllamaProvider{model: model, client: client}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// CheckModel verifies the configured model is present in the runner.
func (p *OllamaProvider) CheckModel(ctx context.Context) error {
	resp, err := p.client.List(ctx)
	if err != nil {
		return fmt.Errorf("listing ollama models: %w", err)
	}
	for _, m := range resp.Models {
		if m.Name == p.model || m.Model == p.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found in ollama", p.model)
}

// Embed generates embeddings for texts using the Ollama embed API.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embed(ctx, &ollama.EmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
