// Package frontdoor exposes the chat-completion HTTP surface and translates
// between the wire contract and the orchestrator.
package frontdoor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/localllm/ollama-gateway/internal/config"
	"github.com/localllm/ollama-gateway/internal/domain"
	"github.com/localllm/ollama-gateway/internal/envelope"
	"github.com/localllm/ollama-gateway/internal/orchestrator"
	"github.com/localllm/ollama-gateway/internal/server"
	"github.com/localllm/ollama-gateway/internal/stream"
	"github.com/localllm/ollama-gateway/internal/tokens"
	"github.com/localllm/ollama-gateway/internal/transcript"
)

type Handler struct {
	orch    *orchestrator.Orchestrator
	backend domain.Backend
	store   transcript.Store
	counter *tokens.Counter
	models  []domain.Model
}

// NewHandler wires the chat-completion surface. store may be nil to disable
// transcript recording; models may be empty to delegate /v1/models to the
// backend.
func NewHandler(orch *orchestrator.Orchestrator, backend domain.Backend, store transcript.Store, counter *tokens.Counter, models []config.ModelListItem) *Handler {
	exposedModels := make([]domain.Model, 0, len(models))
	for _, model := range models {
		exposedModels = append(exposedModels, domain.Model{
			ID:      model.ID,
			Object:  model.Object,
			OwnedBy: model.OwnedBy,
			Created: model.Created,
		})
	}

	return &Handler{
		orch:    orch,
		backend: backend,
		store:   store,
		counter: counter,
		models:  exposedModels,
	}
}

// HandleChatCompletions serves POST /v1/chat/completions in both modes.
func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	logger := slog.Default()
	requestID := server.GetRequestID(r.Context())

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("failed to decode chat completion request",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		server.AddError(r.Context(), err)
		writeError(w, domain.ErrInvalidRequest(err.Error()))
		return
	}

	canonReq, err := toCompletionRequest(req, h.orch.DefaultModel())
	if err != nil {
		logger.Error("invalid chat completion request",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		server.AddError(r.Context(), err)
		writeError(w, domain.ErrInvalidRequest(err.Error()))
		return
	}

	server.AddLogField(r.Context(), "requested_model", canonReq.Model)
	server.AddLogField(r.Context(), "backend", h.backend.Name())
	server.AddLogField(r.Context(), "stream", strconv.FormatBool(canonReq.Stream))

	if canonReq.Stream {
		h.handleStream(w, r, canonReq)
		return
	}

	resp, err := h.orch.Complete(r.Context(), canonReq)
	if err != nil {
		apiErr := domain.AsAPIError(err)
		logger.Error("chat completion failed",
			slog.String("request_id", requestID),
			slog.String("error", apiErr.Error()),
			slog.String("requested_model", canonReq.Model),
		)
		server.AddError(r.Context(), apiErr)
		writeError(w, apiErr)
		return
	}

	h.logUsage(r, canonReq, resp.Content)
	h.record(r, resp.ID, canonReq, resp.Content)

	logger.Info("chat completion",
		slog.String("request_id", requestID),
		slog.String("model", resp.Model),
		slog.String("stop_reason", resp.StopReason),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request, req *domain.CompletionRequest) {
	logger := slog.Default()
	requestID := server.GetRequestID(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		server.AddError(r.Context(), fmt.Errorf("streaming not supported"))
		writeError(w, domain.ErrServer("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	var builder strings.Builder
	var completionID string
	failed := false

	for ev := range h.orch.Stream(r.Context(), req) {
		if ev.Delta != nil {
			builder.WriteString(ev.Delta.Delta.Content)
			completionID = ev.Delta.ID
		}
		if ev.Error != nil {
			failed = true
		}

		if err := stream.WriteEvent(w, ev); err != nil {
			// Client is gone; the orchestrator stops via context cancellation.
			logger.Info("stream write failed",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)
			return
		}
		flusher.Flush()
	}

	if failed {
		server.AddLogField(r.Context(), "stream_status", "error")
		return
	}

	h.logUsage(r, req, builder.String())
	h.record(r, completionID, req, builder.String())

	logger.Info("chat completion stream finished",
		slog.String("request_id", requestID),
		slog.String("model", req.Model),
	)
}

// HandleListModels serves GET /v1/models from the configured static list,
// falling back to the backend's installed models.
func (h *Handler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	server.AddLogField(r.Context(), "backend", h.backend.Name())

	w.Header().Set("Content-Type", "application/json")

	if len(h.models) > 0 {
		json.NewEncoder(w).Encode(domain.ModelList{Object: "list", Data: h.models})
		return
	}

	list, err := h.backend.ListModels(r.Context())
	if err != nil {
		apiErr := domain.AsAPIError(err)
		server.AddError(r.Context(), apiErr)
		writeError(w, apiErr)
		return
	}

	if list.Object == "" {
		list.Object = "list"
	}

	json.NewEncoder(w).Encode(list)
}

// HandleHealth serves GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"model":  h.orch.DefaultModel(),
	})
}

func (h *Handler) logUsage(r *http.Request, req *domain.CompletionRequest, reply string) {
	if h.counter == nil {
		return
	}
	promptTokens := h.counter.CountPrompt(req.Messages, req.System)
	completionTokens := h.counter.CountText(reply)
	server.AddLogField(r.Context(), "prompt_tokens", strconv.Itoa(promptTokens))
	server.AddLogField(r.Context(), "completion_tokens", strconv.Itoa(completionTokens))
}

func (h *Handler) record(r *http.Request, completionID string, req *domain.CompletionRequest, reply string) {
	if h.store == nil {
		return
	}

	c := &transcript.Completion{
		ID:        completionID,
		Model:     req.Model,
		Streaming: req.Stream,
		Metadata: map[string]string{
			"backend":    h.backend.Name(),
			"request_id": server.GetRequestID(r.Context()),
		},
	}
	if h.counter != nil {
		c.PromptTokens = h.counter.CountPrompt(req.Messages, req.System)
		c.CompletionTokens = h.counter.CountText(reply)
	}

	transcript.Record(r.Context(), h.store, c, req, reply)
}

func writeError(w http.ResponseWriter, apiErr *domain.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatusCode())
	json.NewEncoder(w).Encode(envelope.Error(apiErr))
}
