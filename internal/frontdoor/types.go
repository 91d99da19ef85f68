package frontdoor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localllm/ollama-gateway/internal/domain"
)

// ChatRequest is the inbound chat-completion wire format.
type ChatRequest struct {
	Model       string       `json:"model,omitempty"`
	Messages    []Message    `json:"messages"`
	System      SystemPrompt `json:"system,omitempty"`
	Stream      *bool        `json:"stream,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
}

// Message is one wire-format chat turn.
type Message struct {
	Role    string      `json:"role"`
	Content ContentList `json:"content"`
}

// SystemPrompt accepts both a plain string and an array of text blocks.
type SystemPrompt string

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	// Accept a single string
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = SystemPrompt(single)
		return nil
	}

	// Accept an array of text blocks
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		if len(blocks) == 0 {
			*s = ""
			return nil
		}
		text, err := collapseBlocks(blocks)
		if err != nil {
			return err
		}
		*s = SystemPrompt(text)
		return nil
	}

	return fmt.Errorf("system must be a string or array of text blocks")
}

// ContentBlock is one typed fragment of message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ContentList supports both the string shortcut and the full array format.
type ContentList []ContentBlock

func (m *ContentList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	// Allow the simple string form
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = ContentList{{Type: "text", Text: single}}
		return nil
	}

	// Allow the array-of-blocks form
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		// Default missing types to text for compatibility
		for i := range blocks {
			if blocks[i].Type == "" {
				blocks[i].Type = "text"
			}
		}
		*m = blocks
		return nil
	}

	return fmt.Errorf("content must be a string or array of content blocks")
}

// toCompletionRequest validates and converts the wire request to the
// canonical form. Stream defaults to true when absent, matching the contract
// this gateway has always served.
func toCompletionRequest(req ChatRequest, defaultModel string) (*domain.CompletionRequest, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages must contain at least one entry")
	}

	canonReq := &domain.CompletionRequest{
		Messages: make([]domain.ChatMessage, 0, len(req.Messages)),
		System:   string(req.System),
		Model:    req.Model,
		Stream:   true,
	}
	if req.Stream != nil {
		canonReq.Stream = *req.Stream
	}
	if canonReq.Model == "" {
		canonReq.Model = defaultModel
	}

	for idx, msg := range req.Messages {
		content, err := collapseBlocks(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", idx, err)
		}

		switch msg.Role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
		default:
			return nil, fmt.Errorf("message %d: unsupported role: %s", idx, msg.Role)
		}

		canonReq.Messages = append(canonReq.Messages, domain.ChatMessage{
			Role:    msg.Role,
			Content: content,
		})
	}

	return canonReq, nil
}

func collapseBlocks(blocks []ContentBlock) (string, error) {
	if len(blocks) == 0 {
		return "", fmt.Errorf("content is required")
	}

	var b strings.Builder
	for _, block := range blocks {
		blockType := block.Type
		if blockType == "" {
			blockType = "text"
		}
		if blockType != "text" {
			return "", fmt.Errorf("unsupported content block type: %s", blockType)
		}
		b.WriteString(block.Text)
	}

	return b.String(), nil
}
