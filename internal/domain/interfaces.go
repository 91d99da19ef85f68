package domain

import (
	"context"
)

// Backend defines the model backend collaborator. One call produces exactly
// one complete reply string or one failure; there are no partial results.
// Streaming simulation is entirely the orchestrator's responsibility.
type Backend interface {
	Name() string

	// Complete sends the conversation to the backend and blocks until the
	// full reply text is available. An empty string is a valid reply.
	Complete(ctx context.Context, messages []ChatMessage, system, model string) (string, error)

	// ListModels returns the models the backend currently serves.
	ListModels(ctx context.Context) (*ModelList, error)
}
