package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunVersion_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := runVersion(&buf, "text"); err != nil {
		t.Fatalf("runVersion failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Amadeus") {
		t.Errorf("version output missing product name: %q", out)
	}
	if !strings.Contains(out, "go_version:") {
		t.Errorf("version output missing go_version: %q", out)
	}
}

func TestRunVersion_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := runVersion(&buf, "json"); err != nil {
		t.Fatalf("runVersion failed: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if info["version"] == "" {
		t.Error("version field empty")
	}
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), &out, &errOut, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Usage: amadeus") {
		t.Errorf("usage not printed: %q", out.String())
	}
}

func TestRun_ArgErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown command", []string{"bogus"}, "unknown command"},
		{"unknown flag", []string{"-bogus"}, "unknown flag"},
		{"config without path", []string{"-config"}, "requires a path"},
		{"bad output format", []string{"-o", "xml", "version"}, "unknown output format"},
		{"ask without question", []string{"ask"}, "usage: amadeus ask"},
		{"missing config file", []string{"-config", "/nonexistent/config.yaml", "version"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := run(context.Background(), &out, &errOut, tt.args)
			if tt.want == "" {
				// -config path errors surface only when the command loads
				// config; version does not.
				if err != nil {
					t.Fatalf("run failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRun_HelpFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), &out, &errOut, []string{"-h"}); err != nil {
		t.Fatalf("run -h failed: %v", err)
	}
	if !strings.Contains(out.String(), "Commands:") {
		t.Errorf("help output missing commands: %q", out.String())
	}
}
