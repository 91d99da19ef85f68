// Package orchestrator routes one backend reply to the non-streaming envelope
// or the simulated stream, ensuring every request terminates with exactly one
// outcome.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/localllm/ollama-gateway/internal/chunker"
	"github.com/localllm/ollama-gateway/internal/domain"
	"github.com/localllm/ollama-gateway/internal/envelope"
	"github.com/localllm/ollama-gateway/internal/stream"
)

// Orchestrator owns one request's completion lifecycle. It holds no mutable
// state across requests; the configured default model is fixed at
// construction.
type Orchestrator struct {
	backend      domain.Backend
	chunker      *chunker.Chunker
	emitter      *stream.Emitter
	defaultModel string
}

// New creates an orchestrator. defaultModel is applied when a request names no
// model.
func New(backend domain.Backend, ch *chunker.Chunker, em *stream.Emitter, defaultModel string) *Orchestrator {
	return &Orchestrator{
		backend:      backend,
		chunker:      ch,
		emitter:      em,
		defaultModel: defaultModel,
	}
}

// DefaultModel returns the configured fallback model.
func (o *Orchestrator) DefaultModel() string {
	return o.defaultModel
}

// Complete handles the non-streaming path: one backend call, one full
// envelope. A backend failure surfaces exactly once as a canonical API error
// and is never retried here.
func (o *Orchestrator) Complete(ctx context.Context, req *domain.CompletionRequest) (*envelope.Response, error) {
	model := o.resolveModel(req.Model)

	reply, err := o.backend.Complete(ctx, req.Messages, req.System, model)
	if err != nil {
		return nil, domain.AsAPIError(err)
	}

	resp := envelope.Full(newMessageID(), model, reply)
	return &resp, nil
}

// Stream handles the streaming path. The returned sequence is finite and
// non-restartable: on success, one delta per fragment followed by the
// sentinel; on backend failure, one error-tagged event followed immediately by
// the sentinel with no data events before it. The channel is closed by the
// producer; cancellation stops production promptly.
func (o *Orchestrator) Stream(ctx context.Context, req *domain.CompletionRequest) <-chan stream.Event {
	out := make(chan stream.Event)
	go func() {
		defer close(out)

		model := o.resolveModel(req.Model)

		reply, err := o.backend.Complete(ctx, req.Messages, req.System, model)

		var events <-chan stream.Event
		if err != nil {
			slog.Default().Error("backend completion failed",
				slog.String("model", model),
				slog.String("backend", o.backend.Name()),
				slog.String("error", err.Error()),
			)
			events = o.emitter.EmitError(ctx, domain.AsAPIError(err))
		} else {
			events = o.emitter.Emit(ctx, newMessageID(), model, o.chunker.Chunk(reply))
		}

		for ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (o *Orchestrator) resolveModel(model string) string {
	if model == "" {
		return o.defaultModel
	}
	return model
}

func newMessageID() string {
	return "msg_" + uuid.New().String()
}
