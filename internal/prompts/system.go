// Package prompts assembles the system prompt the agent seeds every
// conversation with.
package prompts

import (
	"fmt"

	"github.com/amadeus-agent/amadeus/internal/persona"
	"github.com/amadeus-agent/amadeus/internal/tools"
)

// toolAddendum is the fixed instruction block appended when tools are
// available. The wording is deliberately rigid: the agent only treats
// a response as a tool call when it is exactly this JSON shape.
const toolAddendum = "\nYou have access to the following tools: %s\n\nTo use a tool, respond with a JSON object in this format ONLY:\n{ \"tool\": \"tool_name\", \"args\": { ... } }\nIf you use a tool, do not write anything else."

// System builds the full system prompt from the persona and the
// registered tools. With no tools registered, the prompt is the
// persona's alone.
func System(p persona.Persona, registry *tools.Registry) string {
	if registry == nil || registry.Len() == 0 {
		return p.SystemPrompt
	}
	return p.SystemPrompt + fmt.Sprintf(toolAddendum, "\n"+registry.SchemaDoc())
}
