package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// classifyError maps transport and API failures onto the domain error
// taxonomy so callers can tell connectivity problems, credential problems,
// and missing models apart.
func classifyError(err error, model string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w",
			domain.NewRemediation(domain.ErrProviderUnreachable, "check the provider base URL and network connectivity"))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("connection failed: %w",
			domain.NewRemediation(domain.ErrProviderUnreachable, "check the provider base URL and network connectivity"))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, model)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, string(reqErr.Body), model)
	}

	return fmt.Errorf("request failed: %w: %w", domain.ErrProvider, err)
}

func classifyStatus(status int, detail, model string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("api error %d: %s: %w", status, detail, domain.ErrMissingCredentials)
	case http.StatusNotFound:
		return fmt.Errorf("api error %d: %s: %w", status, detail,
			domain.NewRemediation(domain.ErrModelNotFound, fmt.Sprintf("verify that model %q exists for this provider", model)))
	default:
		return fmt.Errorf("api error %d: %s: %w", status, detail, domain.ErrProvider)
	}
}
