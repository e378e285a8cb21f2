package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInit_FreshDirectory(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	for _, sub := range []string{"data", "workspace"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil {
			t.Errorf("expected directory %s: %v", sub, err)
		} else if !info.IsDir() {
			t.Errorf("%s is not a directory", sub)
		}
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	if !strings.Contains(string(cfg), "ollama_url") {
		t.Error("config.yaml missing ollama_url")
	}

	pers, err := os.ReadFile(filepath.Join(dir, "persona.md"))
	if err != nil {
		t.Fatalf("persona.md not created: %v", err)
	}
	if !strings.Contains(string(pers), "name: Amadeus") {
		t.Error("persona.md missing frontmatter name")
	}

	out := buf.String()
	if !strings.Contains(out, "config.yaml") || !strings.Contains(out, "persona.md") {
		t.Errorf("output missing created files: %q", out)
	}
}

func TestRunInit_SkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	custom := []byte("listen:\n  port: 9999\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), custom, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, custom) {
		t.Error("runInit overwrote existing config.yaml")
	}
}

func TestWriteIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	if err := writeIfMissing(path, []byte("first")); err != nil {
		t.Fatalf("writeIfMissing failed: %v", err)
	}
	if err := writeIfMissing(path, []byte("second")); err != nil {
		t.Fatalf("second writeIfMissing failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Errorf("content = %q, want %q", got, "first")
	}
}
