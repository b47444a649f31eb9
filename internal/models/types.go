package models

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single prompt message sent to a model provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationTurn is one entry of the client-supplied chat history.
// Timestamp is passed through untouched; it is never interpreted.
type ConversationTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CacheEntry is one persisted response record. Timestamp is seconds since
// epoch; an entry is never mutated after creation.
type CacheEntry struct {
	Query     string  `json:"query"`
	Response  string  `json:"response"`
	Context   string  `json:"context"`
	Timestamp float64 `json:"timestamp"`
}

// CacheStats reports the state of the response cache at call time.
type CacheStats struct {
	TotalEntries  int   `json:"total_entries"`
	ActiveEntries int   `json:"active_entries"`
	SizeBytes     int64 `json:"cache_size_bytes"`
}

// ActionSignal is the result of scanning a finished exchange for
// follow-up intent. It is derived per request and never persisted.
type ActionSignal struct {
	AssistantProposedAction bool
	UserAgreed              bool
	UserEmail               string
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query       string             `json:"query"`
	ChatHistory []ConversationTurn `json:"chatHistory"`
	UserID      string             `json:"userId,omitempty"`
	Username    string             `json:"username,omitempty"`
	Format      string             `json:"format,omitempty"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body returned for unexpected failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
