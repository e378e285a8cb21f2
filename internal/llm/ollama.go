package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/amadeus-agent/amadeus/internal/httpkit"
)

// OllamaClient talks to a local Ollama server over its HTTP API.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// OllamaOption configures an OllamaClient.
type OllamaOption func(*OllamaClient)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) OllamaOption {
	return func(c *OllamaClient) { c.httpClient = hc }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) OllamaOption {
	return func(c *OllamaClient) { c.logger = l }
}

// NewOllamaClient creates a client for the given base URL and model.
func NewOllamaClient(baseURL, model string, opts ...OllamaOption) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	c := &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Zero timeout: large local models can take minutes, and the
		// streaming read keeps the connection provably alive. Callers
		// bound the wait with ctx.
		httpClient: httpkit.NewClient(httpkit.WithTimeout(0)),
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Generate sends a streaming chat request and returns the accumulated
// response text once the stream completes.
func (c *OllamaClient) Generate(ctx context.Context, messages []Message) (string, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isConnectionError(err) {
			return "", fmt.Errorf("ollama at %s: %w", c.baseURL, ErrUnavailable)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		return "", fmt.Errorf("ollama API error %d: %s", resp.StatusCode, body)
	}

	// The response is newline-delimited JSON chunks; content arrives a
	// token or two at a time until a chunk with done=true.
	var content strings.Builder
	var final chatResponse
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk chatResponse
		if err := decoder.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		content.WriteString(chunk.Message.Content)
		if chunk.Done {
			final = chunk
			break
		}
	}

	c.logger.Debug("ollama generate complete",
		"model", c.model,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
		"prompt_tokens", final.PromptEvalCount,
		"eval_tokens", final.EvalCount,
	)

	return content.String(), nil
}

// Ping checks that the Ollama server is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama at %s: %w", c.baseURL, ErrUnavailable)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error %d: %w", resp.StatusCode, ErrUnavailable)
	}
	return nil
}

// ListModels returns the models the server has available.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama at %s: %w", c.baseURL, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 4096))
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}

// isConnectionError reports whether err looks like a failure to reach
// the server at all, as opposed to a failure mid-request.
func isConnectionError(err error) bool {
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	// Context cancellation is the caller's doing, not unavailability.
	return false
}
