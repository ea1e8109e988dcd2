package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// Completer implements domain.Completer against a local Ollama server.
type Completer struct {
	client *Client
	model  string
}

// NewCompleter creates an Ollama completion provider.
func NewCompleter(baseURL, model string, logger *zap.Logger) *Completer {
	return &Completer{client: NewClient(baseURL, logger), model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Complete runs a non-streaming chat completion.
func (c *Completer) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completeTimeout)
	defer cancel()

	req := chatRequest{Model: c.model, Stream: false}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	raw, err := c.client.post(ctx, "/api/chat", req, c.model)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Message.Content == "" {
		return "", fmt.Errorf("chat response has no message: %w", domain.ErrMalformedResponse)
	}
	return resp.Message.Content, nil
}
