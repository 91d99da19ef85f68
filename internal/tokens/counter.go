// Package tokens provides approximate token counting for usage logging.
//
// Local models served by Ollama do not ship tiktoken vocabularies, so counts
// here are estimates: the cl100k_base encoding is used as a stand-in when
// available, with a characters-per-token estimator as fallback.
package tokens

import (
	"github.com/tiktoken-go/tokenizer"

	"github.com/localllm/ollama-gateway/internal/domain"
)

// fallbackCharsPerToken is the average characters per token used when no
// codec is available.
const fallbackCharsPerToken = 4

// Counter estimates token counts for prompts and replies.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a counter. Codec initialization failure degrades to the
// character estimator rather than failing.
func NewCounter() *Counter {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		codec = nil
	}
	return &Counter{codec: codec}
}

// CountText returns the approximate token count of a plain text string.
func (c *Counter) CountText(text string) int {
	if text == "" {
		return 0
	}
	if c.codec != nil {
		if ids, _, err := c.codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return (len(text) + fallbackCharsPerToken - 1) / fallbackCharsPerToken
}

// CountPrompt returns the approximate token count of a full prompt: the
// system text plus every message, with a small per-message overhead for role
// and separators.
func (c *Counter) CountPrompt(messages []domain.ChatMessage, system string) int {
	const perMessageOverhead = 4

	total := 0
	if system != "" {
		total += perMessageOverhead + c.CountText(system)
	}
	for _, msg := range messages {
		total += perMessageOverhead + c.CountText(msg.Content)
	}
	return total
}
