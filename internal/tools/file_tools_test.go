package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func setupFileTool(t *testing.T) (*Tool, string) {
	t.Helper()
	dir := t.TempDir()
	return FileSystem(dir), dir
}

func TestFileSystemWriteAndRead(t *testing.T) {
	tool, _ := setupFileTool(t)
	ctx := context.Background()

	out, err := tool.Handler(ctx, map[string]any{
		"action": "write_file", "path": "notes/hello.txt", "content": "hello world",
	})
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if !strings.Contains(out, "11 bytes") {
		t.Errorf("write output = %q", out)
	}

	out, err = tool.Handler(ctx, map[string]any{"action": "read_file", "path": "notes/hello.txt"})
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if out != "hello world" {
		t.Errorf("read = %q, want %q", out, "hello world")
	}
}

func TestFileSystemList(t *testing.T) {
	tool, dir := setupFileTool(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := tool.Handler(ctx, map[string]any{"action": "list_dir"})
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	want := "a.txt\nb.txt\nsub/"
	if out != want {
		t.Errorf("list = %q, want %q", out, want)
	}
}

func TestFileSystemEscapeRejected(t *testing.T) {
	tool, _ := setupFileTool(t)
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "a/../../outside.txt"} {
		// Clean confines these inside the workspace instead of erroring,
		// so a successful read of a nonexistent confined path also fails.
		out, err := tool.Handler(ctx, map[string]any{"action": "read_file", "path": path})
		if err == nil {
			t.Errorf("read(%q) succeeded with %q, want error", path, out)
		}
	}
}

func TestFileSystemMissingArgs(t *testing.T) {
	tool, _ := setupFileTool(t)
	ctx := context.Background()

	if _, err := tool.Handler(ctx, map[string]any{"action": "read_file"}); err == nil {
		t.Error("read without path succeeded")
	}
	if _, err := tool.Handler(ctx, map[string]any{"action": "jump"}); err == nil {
		t.Error("unknown action succeeded")
	}
	if _, err := tool.Handler(ctx, map[string]any{}); err == nil {
		t.Error("missing action succeeded")
	}
}

func TestFileSystemReadMissing(t *testing.T) {
	tool, _ := setupFileTool(t)
	if _, err := tool.Handler(context.Background(), map[string]any{"action": "read_file", "path": "nope.txt"}); err == nil {
		t.Error("read of missing file succeeded")
	}
}

func TestFileSystemReadTruncationKeepsRunesIntact(t *testing.T) {
	tool, dir := setupFileTool(t)

	// A two-byte rune straddles the truncation point.
	content := strings.Repeat("a", maxFileReadBytes-1) + "é!"
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := tool.Handler(context.Background(), map[string]any{"action": "read_file", "path": "big.txt"})
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	body, ok := strings.CutSuffix(out, "\n[truncated]")
	if !ok {
		t.Fatalf("output not marked truncated: %q", out[len(out)-40:])
	}
	if !utf8.ValidString(body) {
		t.Error("truncated read produced invalid UTF-8")
	}
	if len(body) != maxFileReadBytes-1 {
		t.Errorf("truncated length = %d, want %d", len(body), maxFileReadBytes-1)
	}
}
