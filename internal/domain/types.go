package domain

// Message roles understood by the gateway and the backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage represents a single chat turn. A conversation is an ordered
// sequence of messages; order is significant and preserved end to end.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the canonical inbound request after frontdoor decoding.
// Model is always populated (the frontdoor applies the configured default) and
// Messages is non-empty (validated before the orchestrator sees it).
type CompletionRequest struct {
	Messages []ChatMessage `json:"messages"`
	System   string        `json:"system,omitempty"`
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
}

// Model describes a model entry exposed via /v1/models.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
	Created int64  `json:"created,omitempty"`
}

// ModelList is the model listing response.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
