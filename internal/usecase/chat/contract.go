package chat

import (
	"context"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// SessionRepository is the storage contract for sessions and their messages.
type SessionRepository interface {
	Put(ctx context.Context, sess domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)
	Delete(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg domain.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
}

// Retriever resolves a question into scored retrieval contexts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalContext, error)
}

// Completer generates the assistant response.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}
