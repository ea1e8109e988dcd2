// Package openai adapts OpenAI-compatible APIs to the domain Embedder and
// Completer contracts.
package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/metrics"
)

const (
	providerName = "openai"

	embedTimeout  = 20 * time.Second
	healthTimeout = 3 * time.Second
)

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	hasKey     bool
	logger     *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions requests a reduced output size where the model supports it.
	// 0 keeps the model's native dimensionality.
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		hasKey:     cfg.APIKey != "",
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. The call is bounded by embedTimeout and
// instrumented with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if !e.hasKey {
		return domain.EmbeddingResult{}, fmt.Errorf("openai api key not configured: %w", domain.ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, string(e.model), "api_error").Inc()
		return domain.EmbeddingResult{}, classifyError(err, string(e.model))
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrMalformedResponse)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, string(e.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(providerName, string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(providerName, string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if !e.hasKey {
		return fmt.Errorf("openai api key not configured: %w", domain.ErrMissingCredentials)
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", classifyError(err, string(e.model)))
	}
	return nil
}
