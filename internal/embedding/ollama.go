package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Ollama generates embeddings via a local Ollama server's /api/embed endpoint.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

var _ Provider = (*Ollama)(nil)

type ollamaRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewOllama creates an Ollama provider for the given endpoint and model.
func NewOllama(url, model string) *Ollama {
	return &Ollama{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: newHTTPClient(),
	}
}

// Embed implements Provider.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float64, error) {
	var result ollamaResponse
	if err := postJSON(ctx, o.client, o.url+"/api/embed", nil, ollamaRequest{Model: o.model, Input: text}, &result); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned empty embeddings")
	}

	return result.Embeddings[0], nil
}

// EmbedBatch implements Provider using the array form of input.
func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var result ollamaResponse
	if err := postJSON(ctx, o.client, o.url+"/api/embed", nil, ollamaRequest{Model: o.model, Input: texts}, &result); err != nil {
		return nil, fmt.Errorf("ollama batch embed: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	return result.Embeddings, nil
}
