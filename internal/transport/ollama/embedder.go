package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/metrics"
)

const providerName = "ollama"

// Embedder implements domain.Embedder against a local Ollama server.
type Embedder struct {
	client *Client
	model  string
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(baseURL, model string, logger *zap.Logger) *Embedder {
	return &Embedder{client: NewClient(baseURL, logger), model: model}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed vectorizes text. Ollama reports no token usage, so the result
// carries only the vector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	start := time.Now()
	raw, err := e.client.post(ctx, "/api/embeddings", embedRequest{Model: e.model, Prompt: text}, e.model)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, err
	}

	var resp embedResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("embedding response has no vector: %w", domain.ErrMalformedResponse)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	vec := make([]float32, len(resp.Embedding))
	for i, f := range resp.Embedding {
		vec[i] = float32(f)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// HealthCheck delegates to the client's connectivity probe.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return e.client.HealthCheck(ctx)
}
