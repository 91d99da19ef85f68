package tokens

import (
	"testing"

	"github.com/localllm/ollama-gateway/internal/domain"
)

func TestCountText(t *testing.T) {
	c := NewCounter()

	if got := c.CountText(""); got != 0 {
		t.Errorf("CountText(\"\") = %d, want 0", got)
	}

	short := c.CountText("Hello!")
	if short == 0 {
		t.Error("CountText(\"Hello!\") = 0, want > 0")
	}

	long := c.CountText("The quick brown fox jumps over the lazy dog and keeps on running.")
	if long <= short {
		t.Errorf("longer text counted %d tokens, short text %d", long, short)
	}
}

func TestCountTextFallback(t *testing.T) {
	c := &Counter{} // no codec, character estimator only

	if got := c.CountText("abcdefgh"); got != 2 {
		t.Errorf("CountText(8 chars) = %d, want 2", got)
	}
	if got := c.CountText("abcdefghi"); got != 3 {
		t.Errorf("CountText(9 chars) = %d, want ceil to 3", got)
	}
}

func TestCountPrompt(t *testing.T) {
	c := NewCounter()

	messages := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "Hello!"},
		{Role: domain.RoleAssistant, Content: "Hi there!"},
		{Role: domain.RoleUser, Content: "Tell me a joke."},
	}

	contentOnly := 0
	for _, m := range messages {
		contentOnly += c.CountText(m.Content)
	}

	got := c.CountPrompt(messages, "")
	if got <= contentOnly {
		t.Errorf("CountPrompt = %d, want > %d (per-message overhead missing)", got, contentOnly)
	}

	withSystem := c.CountPrompt(messages, "Be friendly")
	if withSystem <= got {
		t.Errorf("system prompt not counted: %d <= %d", withSystem, got)
	}

	if c.CountPrompt(nil, "") != 0 {
		t.Error("empty prompt should count 0 tokens")
	}
}
