// Package envelope builds the fixed JSON wire shapes wrapping model output.
package envelope

import (
	"github.com/localllm/ollama-gateway/internal/domain"
)

// StopReasonEndTurn is the stop reason reported on every completed reply.
const StopReasonEndTurn = "end_turn"

// Response is the non-streaming wire envelope. It is emitted exactly once per
// non-streaming request.
type Response struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Delta is the streaming wire envelope carrying one incremental fragment.
// StopReason is a pointer so it serializes as null on every delta except the
// final one.
type Delta struct {
	ID         string       `json:"id"`
	Model      string       `json:"model"`
	Role       string       `json:"role"`
	Delta      DeltaContent `json:"delta"`
	StopReason *string      `json:"stop_reason"`
}

// DeltaContent holds the incremental fragment of a streaming envelope.
type DeltaContent struct {
	Content string `json:"content"`
}

// ErrorBody is the wire error shape shared by both modes.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail identifies the failure category and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Full builds the non-streaming envelope. It is pure and has no failure
// modes; an empty text is valid content.
func Full(id, model, text string) Response {
	return Response{
		ID:         id,
		Model:      model,
		Role:       domain.RoleAssistant,
		Content:    text,
		StopReason: StopReasonEndTurn,
	}
}

// Partial builds one streaming delta envelope. The stop reason is populated
// only on the final delta; first and middle deltas carry null. The wire shape
// is otherwise identical across positions.
func Partial(id, model, fragment string, first, last bool) Delta {
	d := Delta{
		ID:    id,
		Model: model,
		Role:  domain.RoleAssistant,
		Delta: DeltaContent{Content: fragment},
	}
	if last {
		reason := StopReasonEndTurn
		d.StopReason = &reason
	}
	return d
}

// Error builds the wire error body from a canonical API error.
func Error(err *domain.APIError) ErrorBody {
	return ErrorBody{
		Error: ErrorDetail{
			Type:    string(err.Type),
			Message: err.Message,
		},
	}
}
