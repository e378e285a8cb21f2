// Package llm provides the inference engine contract and its Ollama
// implementation. The agent loop depends only on the Client interface;
// transport details (NDJSON streaming, endpoints, timeouts) stay here.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the inference backend cannot be reached.
// Callers use errors.Is to distinguish a dead backend from a malformed
// request or a mid-stream failure.
var ErrUnavailable = errors.New("llm: backend unavailable")

// Client is the inference engine contract. Implementations must be
// safe for concurrent use.
type Client interface {
	// Generate runs one inference over the full message sequence and
	// returns the assistant's complete response text. Blocks until the
	// response is finished or ctx is done.
	Generate(ctx context.Context, messages []Message) (string, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Model returns the model name this client generates with.
	Model() string
}
