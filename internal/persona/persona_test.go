package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	p := Default()
	if p.Name != "Amadeus" {
		t.Errorf("Name = %q, want Amadeus", p.Name)
	}
	if !strings.Contains(p.SystemPrompt, "Makise Kurisu") {
		t.Errorf("SystemPrompt missing identity:\n%s", p.SystemPrompt)
	}
}

func writePersona(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "persona.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithFrontmatter(t *testing.T) {
	path := writePersona(t, "---\nname: Kurisu\n---\nYou are a test persona.\n")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if p.Name != "Kurisu" {
		t.Errorf("Name = %q, want Kurisu", p.Name)
	}
	if p.SystemPrompt != "You are a test persona.\n" {
		t.Errorf("SystemPrompt = %q", p.SystemPrompt)
	}
}

func TestLoadWithoutFrontmatter(t *testing.T) {
	path := writePersona(t, "Plain prompt, no header.\n")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if p.Name != "Amadeus" {
		t.Errorf("Name = %q, want default Amadeus", p.Name)
	}
	if p.SystemPrompt != "Plain prompt, no header.\n" {
		t.Errorf("SystemPrompt = %q", p.SystemPrompt)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Load() of missing file succeeded")
	}

	unterminated := writePersona(t, "---\nname: Broken\nprompt body")
	if _, err := Load(unterminated); err == nil {
		t.Error("Load() of unterminated frontmatter succeeded")
	}

	empty := writePersona(t, "---\nname: Empty\n---\n\n")
	if _, err := Load(empty); err == nil {
		t.Error("Load() of empty prompt succeeded")
	}
}
