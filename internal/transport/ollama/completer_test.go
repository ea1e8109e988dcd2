package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/velum-cloud/ragdex/internal/domain"
)

func TestCompleter_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Stream {
			t.Error("streaming requested")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "grounded answer"},
		})
	}))
	defer server.Close()

	c := NewCompleter(server.URL, "llama3.1", zap.NewNop())
	got, err := c.Complete(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "you are helpful"},
		{Role: domain.RoleUser, Content: "question"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "grounded answer" {
		t.Errorf("got %q, want %q", got, "grounded answer")
	}
}

func TestCompleter_EmptyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	c := NewCompleter(server.URL, "llama3.1", zap.NewNop())
	_, err := c.Complete(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}})
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Errorf("got %v, want ErrMalformedResponse", err)
	}
}

func TestCompleter_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	c := NewCompleter(server.URL, "missing", zap.NewNop())
	_, err := c.Complete(context.Background(), []domain.ChatMessage{{Role: domain.RoleUser, Content: "q"}})
	if !errors.Is(err, domain.ErrModelNotFound) {
		t.Errorf("got %v, want ErrModelNotFound", err)
	}
}
