// Package ollama implements the model backend collaborator against Ollama's
// native HTTP API. The backend produces one complete reply per call; it never
// streams to the gateway.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/localllm/ollama-gateway/internal/domain"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout for backend calls.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// Client talks to an Ollama server. It implements domain.Backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.Backend = (*Client)(nil)

// NewClient creates a new Ollama client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	return "ollama"
}

// Complete sends the conversation with stream disabled and blocks until the
// full reply is available. The system prompt travels as a leading system-role
// message. An empty reply is returned as-is; it is a valid completion.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage, system, model string) (string, error) {
	apiMessages := make([]chatMessage, 0, len(messages)+1)
	if system != "" {
		apiMessages = append(apiMessages, chatMessage{Role: domain.RoleSystem, Content: system})
	}
	for _, m := range messages {
		apiMessages = append(apiMessages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: apiMessages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.ErrBackendUnavailable(fmt.Sprintf("ollama request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.ErrBackendUnavailable(fmt.Sprintf("failed to read ollama response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp.StatusCode, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", domain.ErrBackendUnavailable(fmt.Sprintf("failed to unmarshal ollama response: %v", err))
	}

	return result.Message.Content, nil
}

// ListModels returns the models the Ollama server currently has pulled.
func (c *Client) ListModels(ctx context.Context) (*domain.ModelList, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrBackendUnavailable(fmt.Sprintf("ollama request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrBackendUnavailable(fmt.Sprintf("failed to read ollama response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, respBody)
	}

	var tags tagsResponse
	if err := json.Unmarshal(respBody, &tags); err != nil {
		return nil, domain.ErrBackendUnavailable(fmt.Sprintf("failed to unmarshal ollama response: %v", err))
	}

	models := make([]domain.Model, len(tags.Models))
	for i, m := range tags.Models {
		created := int64(0)
		if ts, err := time.Parse(time.RFC3339Nano, m.ModifiedAt); err == nil {
			created = ts.Unix()
		}
		models[i] = domain.Model{
			ID:      m.Name,
			Object:  "model",
			OwnedBy: "ollama",
			Created: created,
		}
	}

	return &domain.ModelList{Object: "list", Data: models}, nil
}

func parseError(statusCode int, body []byte) *domain.APIError {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		if statusCode == http.StatusNotFound || statusCode == http.StatusBadRequest {
			return domain.ErrInvalidRequest(apiErr.Error).WithStatusCode(statusCode)
		}
		return domain.ErrBackendUnavailable(apiErr.Error)
	}
	return domain.ErrBackendUnavailable(fmt.Sprintf("ollama error (status %d): %s", statusCode, string(body)))
}
