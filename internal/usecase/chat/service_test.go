package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/velum-cloud/ragdex/internal/domain"
)

// --- Mocks ---

type mockSessions struct {
	sessions  map[string]domain.Session
	messages  map[string][]domain.Message
	appendErr error
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		sessions: make(map[string]domain.Session),
		messages: make(map[string][]domain.Message),
	}
}

func (m *mockSessions) Put(_ context.Context, sess domain.Session) error {
	m.sessions[sess.ID] = sess
	return nil
}

func (m *mockSessions) Get(_ context.Context, id string) (domain.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (m *mockSessions) List(_ context.Context) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSessions) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	delete(m.messages, id)
	return nil
}

func (m *mockSessions) AppendMessage(_ context.Context, msg domain.Message) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *mockSessions) ListMessages(_ context.Context, sessionID string) ([]domain.Message, error) {
	return m.messages[sessionID], nil
}

type mockRetriever struct {
	contexts []domain.RetrievalContext
	err      error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ int) ([]domain.RetrievalContext, error) {
	return m.contexts, m.err
}

type mockCompleter struct {
	answer   string
	err      error
	received []domain.ChatMessage
}

func (m *mockCompleter) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	m.received = messages
	return m.answer, m.err
}

// --- Tests ---

func TestCreateSession(t *testing.T) {
	repo := newMockSessions()
	svc := New(repo, &mockRetriever{}, &mockCompleter{})

	sess, err := svc.CreateSession(context.Background(), "research")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.ID == "" || sess.Title != "research" || sess.CreatedAt == 0 {
		t.Errorf("incomplete session %+v", sess)
	}
	if _, ok := repo.sessions[sess.ID]; !ok {
		t.Error("session not persisted")
	}
}

func TestCreateSession_DefaultTitle(t *testing.T) {
	svc := New(newMockSessions(), &mockRetriever{}, &mockCompleter{})
	sess, err := svc.CreateSession(context.Background(), "  ")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.Title != "new session" {
		t.Errorf("title = %q, want default", sess.Title)
	}
}

func TestAsk_GroundedTurn(t *testing.T) {
	repo := newMockSessions()
	repo.sessions["s1"] = domain.Session{ID: "s1"}
	contexts := []domain.RetrievalContext{{
		ChunkID:  "d1:0",
		DocID:    "d1",
		DocTitle: "storage",
		Content:  "redis persists to disk",
		Score:    0.8,
	}}
	completer := &mockCompleter{answer: "it persists to disk"}
	svc := New(repo, &mockRetriever{contexts: contexts}, completer)

	msg, err := svc.Ask(context.Background(), "s1", "how does redis persist?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if msg.Role != domain.RoleAssistant || msg.Content != "it persists to disk" {
		t.Errorf("unexpected assistant message %+v", msg)
	}
	if len(msg.Contexts) != 1 || msg.Contexts[0].ChunkID != "d1:0" {
		t.Errorf("contexts not attached: %+v", msg.Contexts)
	}

	stored := repo.messages["s1"]
	if len(stored) != 2 {
		t.Fatalf("got %d stored messages, want 2", len(stored))
	}
	if stored[0].Role != domain.RoleUser || stored[1].Role != domain.RoleAssistant {
		t.Errorf("wrong roles: %q, %q", stored[0].Role, stored[1].Role)
	}

	// System prompt carries the retrieved passage.
	if len(completer.received) == 0 || completer.received[0].Role != domain.RoleSystem {
		t.Fatalf("no system message sent: %+v", completer.received)
	}
	if !strings.Contains(completer.received[0].Content, "redis persists to disk") {
		t.Error("system prompt missing context passage")
	}
	last := completer.received[len(completer.received)-1]
	if last.Role != domain.RoleUser || last.Content != "how does redis persist?" {
		t.Errorf("question not last: %+v", last)
	}
}

func TestAsk_NoContexts(t *testing.T) {
	repo := newMockSessions()
	repo.sessions["s1"] = domain.Session{ID: "s1"}
	completer := &mockCompleter{answer: "I don't know"}
	svc := New(repo, &mockRetriever{}, completer)

	msg, err := svc.Ask(context.Background(), "s1", "anything?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if len(msg.Contexts) != 0 {
		t.Errorf("unexpected contexts %+v", msg.Contexts)
	}
	if strings.Contains(completer.received[0].Content, "Context passages") {
		t.Error("system prompt advertises passages it does not have")
	}
}

func TestAsk_RetrievalFailureFailsTurn(t *testing.T) {
	repo := newMockSessions()
	repo.sessions["s1"] = domain.Session{ID: "s1"}
	svc := New(repo, &mockRetriever{err: domain.ErrProviderUnreachable}, &mockCompleter{})

	_, err := svc.Ask(context.Background(), "s1", "question")
	if !errors.Is(err, domain.ErrProviderUnreachable) {
		t.Errorf("got %v, want ErrProviderUnreachable", err)
	}
	if len(repo.messages["s1"]) != 0 {
		t.Error("failed turn persisted messages")
	}
}

func TestAsk_CompletionFailureFailsTurn(t *testing.T) {
	repo := newMockSessions()
	repo.sessions["s1"] = domain.Session{ID: "s1"}
	svc := New(repo, &mockRetriever{}, &mockCompleter{err: domain.ErrModelNotFound})

	_, err := svc.Ask(context.Background(), "s1", "question")
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("got %v, want ErrModelNotFound", err)
	}
	if len(repo.messages["s1"]) != 0 {
		t.Error("failed turn persisted messages")
	}
}

func TestAsk_UnknownSession(t *testing.T) {
	svc := New(newMockSessions(), &mockRetriever{}, &mockCompleter{})
	_, err := svc.Ask(context.Background(), "absent", "question")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	repo := newMockSessions()
	repo.sessions["s1"] = domain.Session{ID: "s1"}
	svc := New(repo, &mockRetriever{}, &mockCompleter{})

	_, err := svc.Ask(context.Background(), "s1", " \t ")
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Errorf("got %v, want ErrEmptyQuery", err)
	}
}

func TestAsk_HistoryReplayed(t *testing.T) {
	repo := newMockSessions()
	repo.sessions["s1"] = domain.Session{ID: "s1"}
	repo.messages["s1"] = []domain.Message{
		{SessionID: "s1", Role: domain.RoleUser, Content: "earlier question"},
		{SessionID: "s1", Role: domain.RoleAssistant, Content: "earlier answer"},
	}
	completer := &mockCompleter{answer: "ok"}
	svc := New(repo, &mockRetriever{}, completer)

	if _, err := svc.Ask(context.Background(), "s1", "followup"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	// system + 2 history + new question
	if len(completer.received) != 4 {
		t.Fatalf("got %d messages, want 4", len(completer.received))
	}
	if completer.received[1].Content != "earlier question" || completer.received[2].Content != "earlier answer" {
		t.Errorf("history not replayed in order: %+v", completer.received)
	}
}

func TestDeleteSession_Unknown(t *testing.T) {
	svc := New(newMockSessions(), &mockRetriever{}, &mockCompleter{})
	if err := svc.DeleteSession(context.Background(), "absent"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestHistory_Unknown(t *testing.T) {
	svc := New(newMockSessions(), &mockRetriever{}, &mockCompleter{})
	if _, err := svc.History(context.Background(), "absent"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}
