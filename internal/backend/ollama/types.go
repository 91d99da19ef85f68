package ollama

// chatRequest is the payload for Ollama's native POST /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the non-streaming reply from POST /api/chat.
type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// errorResponse is Ollama's error body.
type errorResponse struct {
	Error string `json:"error"`
}

// tagsResponse is the reply from GET /api/tags.
type tagsResponse struct {
	Models []tagModel `json:"models"`
}

type tagModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
}
