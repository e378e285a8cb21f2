// Package tools defines the tools available to the agent and the
// registry that dispatches them.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Errors returned by the registry.
var (
	// ErrDuplicateTool is returned when a tool name is registered twice.
	ErrDuplicateTool = errors.New("tools: duplicate tool name")
	// ErrNotFound is returned when a named tool is not registered.
	ErrNotFound = errors.New("tools: tool not found")
)

// Tool represents a callable tool.
type Tool struct {
	// Name is the identifier the model uses to invoke the tool.
	Name string
	// Description tells the model what the tool does.
	Description string
	// ArgsDoc documents the expected args object, shown to the model
	// verbatim in the tool schema.
	ArgsDoc string
	// Handler executes the tool. It returns human-readable output for
	// the model to observe, or an error.
	Handler func(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the registered tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering a name that already exists fails
// with ErrDuplicateTool; the existing tool is left in place.
func (r *Registry) Register(t *Tool) error {
	if t.Name == "" {
		return errors.New("tools: tool name must not be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tools: tool %q has no handler", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SchemaDoc renders the tool descriptions as a text block for the
// system prompt. Tools are listed in name order so the prompt is
// stable across runs regardless of registration order.
func (r *Registry) SchemaDoc() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		t := r.tools[name]
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		if t.ArgsDoc != "" {
			fmt.Fprintf(&b, "  args: %s\n", t.ArgsDoc)
		}
	}
	return b.String()
}

// Execute runs a tool by name. Unknown names fail with ErrNotFound.
// The returned string is the tool's observable output; a non-nil error
// means the tool failed and the error text is the observation instead.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return t.Handler(ctx, args)
}
