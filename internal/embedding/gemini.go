package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultGeminiURL is the public Generative Language API base.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini generates embeddings via the Generative Language embedContent API.
type Gemini struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

var _ Provider = (*Gemini)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiValues struct {
	Values []float64 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiValues `json:"embedding"`
}

type geminiBatchResponse struct {
	Embeddings []geminiValues `json:"embeddings"`
}

// NewGemini creates a Gemini provider. An empty baseURL uses DefaultGeminiURL.
func NewGemini(baseURL, model, apiKey string) *Gemini {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}

	return &Gemini{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   strings.TrimPrefix(model, "models/"),
		apiKey:  apiKey,
		client:  newHTTPClient(),
	}
}

func (g *Gemini) request(text string) geminiEmbedRequest {
	return geminiEmbedRequest{
		Model:   "models/" + g.model,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}
}

func (g *Gemini) headers() map[string]string {
	return map[string]string{"x-goog-api-key": g.apiKey}
}

// Embed implements Provider.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent", g.baseURL, g.model)

	var result geminiEmbedResponse
	if err := postJSON(ctx, g.client, url, g.headers(), g.request(text), &result); err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	if len(result.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned an empty embedding")
	}

	return result.Embedding.Values, nil
}

// EmbedBatch implements Provider using batchEmbedContents.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", g.baseURL, g.model)

	req := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, t := range texts {
		req.Requests[i] = g.request(t)
	}

	var result geminiBatchResponse
	if err := postJSON(ctx, g.client, url, g.headers(), req, &result); err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, e := range result.Embeddings {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at index %d", i)
		}

		out[i] = e.Values
	}

	return out, nil
}
