// Package chat manages sessions and runs the retrieval-augmented answer flow:
// retrieve context for the question, ground the completion on it, persist both
// turns with provenance.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
	"github.com/velum-cloud/ragdex/internal/logger"
)

// historyWindow caps how many prior turns are replayed to the completer.
const historyWindow = 20

const basePrompt = "You are a helpful assistant. Answer using the provided context passages. " +
	"If the context does not contain the answer, say so instead of guessing."

// Service handles chat sessions and grounded completions.
type Service struct {
	sessions  SessionRepository
	retriever Retriever
	completer Completer
}

// New creates a chat service.
func New(sessions SessionRepository, retriever Retriever, completer Completer) *Service {
	return &Service{sessions: sessions, retriever: retriever, completer: completer}
}

// CreateSession starts a new empty session.
func (s *Service) CreateSession(ctx context.Context, title string) (domain.Session, error) {
	if strings.TrimSpace(title) == "" {
		title = "new session"
	}
	sess := domain.Session{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return s.sessions.Get(ctx, id)
}

// ListSessions returns all sessions, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	return s.sessions.List(ctx)
}

// DeleteSession removes a session and its history.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, id)
}

// History returns a session's messages in append order.
func (s *Service) History(ctx context.Context, id string) ([]domain.Message, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.sessions.ListMessages(ctx, id)
}

// Ask answers a question inside a session. The question is retrieved against
// the corpus first; retrieval failure fails the turn rather than silently
// producing an ungrounded answer. Both the user turn and the assistant turn
// are persisted, the assistant one carrying its retrieval contexts.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (domain.Message, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Message{}, domain.ErrEmptyQuery
	}
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return domain.Message{}, err
	}

	contexts, err := s.retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return domain.Message{}, fmt.Errorf("retrieve context: %w", err)
	}

	history, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("load history: %w", err)
	}

	answer, err := s.completer.Complete(ctx, buildMessages(contexts, history, question))
	if err != nil {
		return domain.Message{}, fmt.Errorf("complete: %w", err)
	}

	now := time.Now().UnixMilli()
	userMsg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: now,
	}
	assistantMsg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   answer,
		CreatedAt: now,
		Contexts:  contexts,
	}

	log := logger.FromContext(ctx).With(zap.String("session_id", sessionID))
	if err := s.sessions.AppendMessage(ctx, userMsg); err != nil {
		return domain.Message{}, fmt.Errorf("store user message: %w", err)
	}
	if err := s.sessions.AppendMessage(ctx, assistantMsg); err != nil {
		// The user turn is already stored; surface the failure anyway.
		log.Error("Failed to store assistant message", zap.Error(err))
		return domain.Message{}, fmt.Errorf("store assistant message: %w", err)
	}

	log.Info("Chat turn completed", zap.Int("contexts", len(contexts)))
	return assistantMsg, nil
}

// buildMessages assembles the completion transcript: grounded system prompt,
// a bounded slice of prior turns, then the new question.
func buildMessages(contexts []domain.RetrievalContext, history []domain.Message, question string) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt(contexts)})

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		msgs = append(msgs, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}

	return append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: question})
}

// systemPrompt renders retrieval contexts into the system message. With no
// contexts the base prompt alone is sent and the model must admit ignorance.
func systemPrompt(contexts []domain.RetrievalContext) string {
	if len(contexts) == 0 {
		return basePrompt
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nContext passages:\n")
	for i, rc := range contexts {
		fmt.Fprintf(&b, "\n[%d] (%s, score %.2f)\n%s\n", i+1, rc.DocTitle, rc.Score, rc.Content)
	}
	return b.String()
}
