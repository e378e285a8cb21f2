package agent

import (
	"encoding/json"
	"io"
	"strings"
)

// ToolCall is a structured tool invocation extracted from a model
// response.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ParseToolCall classifies a raw model response. It returns the tool
// call only when the entire response is a single JSON object with
// exactly the two fields "tool" (a string) and "args" (an object) and
// nothing else. Anything looser, extra top-level fields, trailing
// text, a non-object args, is chat content, never a partial tool call.
func ParseToolCall(raw string) (*ToolCall, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, false
	}
	// Anything after the object makes the whole response chat.
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	if len(fields) != 2 {
		return nil, false
	}

	rawTool, ok := fields["tool"]
	if !ok {
		return nil, false
	}
	rawArgs, ok := fields["args"]
	if !ok {
		return nil, false
	}

	var name string
	if err := json.Unmarshal(rawTool, &name); err != nil || name == "" {
		return nil, false
	}
	var args map[string]any
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return nil, false
	}
	// JSON null unmarshals into a nil map without error; args must be
	// an actual object.
	if args == nil {
		return nil, false
	}
	return &ToolCall{Name: name, Args: args}, true
}
