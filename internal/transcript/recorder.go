// Package transcript records completed requests for operator inspection.
// Recording is best-effort and server-side only; clients never observe it and
// requests stay stateless.
package transcript

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/localllm/ollama-gateway/internal/domain"
	"github.com/localllm/ollama-gateway/internal/server"
)

// Completion is one recorded request/reply exchange.
type Completion struct {
	ID               string
	Model            string
	Streaming        bool
	PromptTokens     int
	CompletionTokens int
	Metadata         map[string]string
	CreatedAt        time.Time
}

// Message is one transcript entry, ordered by Seq.
type Message struct {
	ID        string
	Seq       int
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store persists transcripts.
type Store interface {
	CreateCompletion(ctx context.Context, c *Completion) error
	AddMessage(ctx context.Context, completionID string, msg *Message) error
}

// Record stores one exchange: the request messages (system first when
// present) followed by the assistant reply. Failures are logged, never
// surfaced; persistence must not fail the request path.
func Record(ctx context.Context, store Store, c *Completion, req *domain.CompletionRequest, reply string) {
	if store == nil {
		return
	}

	logger := slog.Default()

	// Decouple persistence from the request lifecycle so transcripts survive
	// client disconnects; still enforce a short timeout.
	persistCtx, cancel := detachContext(ctx, 5*time.Second)
	defer cancel()

	if c.ID == "" {
		c.ID = "cmpl_" + uuid.New().String()
	}

	if err := store.CreateCompletion(persistCtx, c); err != nil {
		logger.Error("failed to record completion",
			slog.String("completion_id", c.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	seq := 0
	addMessage := func(role, content string) {
		if content == "" {
			return
		}
		seq++
		if err := store.AddMessage(persistCtx, c.ID, &Message{
			ID:      "msg_" + uuid.New().String(),
			Seq:     seq,
			Role:    role,
			Content: content,
		}); err != nil {
			logger.Error("failed to record transcript message",
				slog.String("completion_id", c.ID),
				slog.String("role", role),
				slog.String("error", err.Error()),
			)
		}
	}

	if req != nil {
		addMessage(domain.RoleSystem, req.System)
		for _, msg := range req.Messages {
			addMessage(msg.Role, msg.Content)
		}
	}

	addMessage(domain.RoleAssistant, reply)
}

// detachContext builds a fresh context carrying only the request ID forward.
func detachContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.Background()
	if reqID := server.GetRequestID(ctx); reqID != "" {
		base = context.WithValue(base, server.RequestIDKey, reqID)
	}

	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}
