// Package ollama adapts a local Ollama server to the domain Embedder and
// Completer contracts. The wire format is Ollama's native JSON API; no SDK
// is involved.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
)

const (
	embedTimeout    = 20 * time.Second
	completeTimeout = 60 * time.Second
	healthTimeout   = 3 * time.Second
)

// Client is a thin HTTP client for one Ollama server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an Ollama client. baseURL defaults to the standard
// local address when empty.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger,
	}
}

// HealthCheck probes the server's tag listing endpoint, bounded by a short
// connectivity timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tags returned %d: %w", resp.StatusCode, domain.ErrProvider)
	}
	return nil
}

// post sends a JSON request and returns the raw body of a 200 response.
// Non-200 responses are classified into the domain error taxonomy.
func (c *Client) post(ctx context.Context, path string, payload any, model string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, raw, model)
	}
	return raw, nil
}

// unreachable wraps dial and timeout failures with the remediation hint for
// a stopped local server.
func unreachable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w",
			domain.NewRemediation(domain.ErrProviderUnreachable, "check that ollama is running: ollama serve"))
	}
	return fmt.Errorf("connection failed: %w",
		domain.NewRemediation(domain.ErrProviderUnreachable, "check that ollama is running: ollama serve"))
}

func classifyStatus(status int, body []byte, model string) error {
	var parsed struct {
		Error string `json:"error"`
	}
	detail := string(body)
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		detail = parsed.Error
	}

	if status == http.StatusNotFound || strings.Contains(detail, "not found") {
		return fmt.Errorf("ollama error %d: %s: %w", status, detail,
			domain.NewRemediation(domain.ErrModelNotFound, "ollama pull "+model))
	}
	return fmt.Errorf("ollama error %d: %s: %w", status, detail, domain.ErrProvider)
}
