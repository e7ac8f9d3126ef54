package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SidecarProvider generates embeddings by calling a local model-runner service
// that holds the sentence-transformer weights in memory.
type SidecarProvider struct {
	url    string
	client *http.Client
}

// NewSidecarProvider creates a new sidecar embedding provider.
// url should be the base URL of the runner, e.g. "http://localhost:8501".
func NewSidecarProvider(url string) *SidecarProvider {
	return &SidecarProvider{
		url:    url,
		client: &http.Client{},
	}
}

// Name returns the provider name.
func (p *SidecarProvider) Name() string {
	return "sidecar"
}

type sidecarRequest struct {
	Texts []string `json:"texts"`
}

type sidecarResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates embeddings for texts using the model runner.
func (p *SidecarProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(sidecarRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model runner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model runner returned %d: %s", resp.StatusCode, string(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result sidecarResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("model runner returned %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	return result.Embeddings, nil
}
