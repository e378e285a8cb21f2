package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/amadeus-agent/amadeus/internal/persona"
	"github.com/amadeus-agent/amadeus/internal/tools"
)

func TestSystemWithoutTools(t *testing.T) {
	p := persona.Default()
	got := System(p, tools.NewRegistry())
	if got != p.SystemPrompt {
		t.Errorf("System() with no tools should be the bare persona prompt")
	}
	if got != System(p, nil) {
		t.Errorf("nil registry should behave like an empty one")
	}
}

func TestSystemWithTools(t *testing.T) {
	reg := tools.NewRegistry()
	err := reg.Register(&tools.Tool{
		Name:        "echo",
		Description: "Echo a message.",
		ArgsDoc:     `{"message": "<text>"}`,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := System(persona.Default(), reg)
	for _, want := range []string{
		"You are Amadeus",
		"You have access to the following tools:",
		"- echo: Echo a message.",
		`{ "tool": "tool_name", "args": { ... } }`,
		"If you use a tool, do not write anything else.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("System() missing %q:\n%s", want, got)
		}
	}
}
