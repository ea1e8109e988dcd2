package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
)

const completeTimeout = 60 * time.Second

// Completer is a chat completion provider using the OpenAI-compatible API.
type Completer struct {
	client *openai.Client
	model  string
	hasKey bool
	logger *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
		logger: cfg.Logger,
	}
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if !c.hasKey {
		return "", fmt.Errorf("openai api key not configured: %w", domain.ErrMissingCredentials)
	}

	ctx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err, c.model)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
