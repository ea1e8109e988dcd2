package domain

// Role is a chat message author role.
type Role string

const (
	// RoleSystem is the system prompt role.
	RoleSystem Role = "system"
	// RoleUser is the end-user role.
	RoleUser Role = "user"
	// RoleAssistant is the model response role.
	RoleAssistant Role = "assistant"
)

// Session is a chat conversation owning an ordered message history.
type Session struct {
	ID        string
	Title     string
	CreatedAt int64 // unix millis
}

// Message is one turn of a chat session. Assistant messages carry the
// retrieval contexts that grounded the response, in retrieval order.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	CreatedAt int64 // unix millis
	Contexts  []RetrievalContext
}

// ChatMessage is the provider-facing message shape for completion calls.
type ChatMessage struct {
	Role    Role
	Content string
}

// Settings is the single mutable settings record. Zero fields fall back to
// the configured defaults.
type Settings struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	TopK         int `json:"top_k"`
}
