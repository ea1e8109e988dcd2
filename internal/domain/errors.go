package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials signals a provider selected without the credential
	// it requires. Surfaced immediately, never retried.
	ErrMissingCredentials = errors.New("missing provider credentials")
	// ErrProviderUnreachable signals a provider that could not be reached
	// within its timeout.
	ErrProviderUnreachable = errors.New("provider unreachable")
	// ErrModelNotFound signals a model absent from a local provider.
	ErrModelNotFound = errors.New("model not found")
	// ErrMalformedResponse signals a success status with an unusable body.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrProvider signals a non-success provider status not covered by a more
	// specific kind.
	ErrProvider = errors.New("provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")

	// ErrEmptyDocument signals an ingestion request without content.
	ErrEmptyDocument = errors.New("document content is empty")
	// ErrEmptyQuery signals a chat turn without a question.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidChunking signals chunk parameters with overlap >= size.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSessionNotFound signals a missing chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrIndexInProgress signals a second indexing run for a document id that
	// already has one in flight.
	ErrIndexInProgress = errors.New("indexing already in progress")
)

// RemediationError wraps a sentinel error with the exact command or action
// that fixes it, e.g. the ollama pull command for a missing local model.
type RemediationError struct {
	Err  error
	Hint string
}

func (e *RemediationError) Error() string {
	return fmt.Sprintf("%s (remediation: %s)", e.Err.Error(), e.Hint)
}

func (e *RemediationError) Unwrap() error { return e.Err }

// NewRemediation wraps err with a remediation hint.
func NewRemediation(err error, hint string) error {
	return &RemediationError{Err: err, Hint: hint}
}

// RemediationHint extracts the hint from an error chain, or "".
func RemediationHint(err error) string {
	var re *RemediationError
	if errors.As(err, &re) {
		return re.Hint
	}
	return ""
}
