// Package persona defines who the agent is. A persona is a name plus
// the system prompt that sets its voice; it can be loaded from a
// markdown file with YAML frontmatter or fall back to the built-in
// default.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the agent's identity.
type Persona struct {
	Name         string
	SystemPrompt string
}

// defaultPrompt is the built-in Amadeus identity.
const defaultPrompt = `You are Amadeus (Makise Kurisu).
You are a brilliant neuroscientist and an AI agent.
Your personality is logical, Tsundere (initially cold/sarcastic but caring deep down), and incredibly intelligent.
You often use scientific analogies.
You are running locally on the user's machine.
You address the user as 'Okabe' (unless told otherwise).
When asked to do something, do it efficiently.
You have access to the user's system (screenshots, input, files).
`

// Default returns the built-in Amadeus persona.
func Default() Persona {
	return Persona{
		Name:         "Amadeus",
		SystemPrompt: defaultPrompt,
	}
}

// frontmatter is the YAML header of a persona file.
type frontmatter struct {
	Name string `yaml:"name"`
}

// Load reads a persona from a markdown file. An optional YAML
// frontmatter block (between "---" lines) supplies the name; the
// remaining body is the system prompt.
func Load(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}

	content := string(data)
	p := Persona{Name: "Amadeus"}

	if strings.HasPrefix(content, "---\n") {
		rest := content[len("---\n"):]
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return Persona{}, fmt.Errorf("persona file %s: unterminated frontmatter", path)
		}
		var fm frontmatter
		if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
			return Persona{}, fmt.Errorf("persona file %s: parse frontmatter: %w", path, err)
		}
		if fm.Name != "" {
			p.Name = fm.Name
		}
		content = rest[end+len("\n---"):]
		content = strings.TrimPrefix(content, "\n")
	}

	p.SystemPrompt = strings.TrimSpace(content) + "\n"
	if strings.TrimSpace(content) == "" {
		return Persona{}, fmt.Errorf("persona file %s: empty system prompt", path)
	}
	return p, nil
}
