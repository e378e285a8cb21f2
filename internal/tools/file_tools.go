package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxFileReadBytes caps how much of a file is returned to the model.
const maxFileReadBytes = 64 * 1024

// FileSystem returns the file_system tool, which reads, writes, and
// lists files confined to the workspace directory.
func FileSystem(workspace string) *Tool {
	ft := &fileTools{workspace: workspace}
	return &Tool{
		Name:        "file_system",
		Description: "Access the file system. Actions: 'read_file', 'write_file', 'list_dir'. Paths are relative to the agent workspace.",
		ArgsDoc:     `{"action": "read_file" | "write_file" | "list_dir", "path": "<relative path>", "content": "<text, write_file only>"}`,
		Handler:     ft.handle,
	}
}

type fileTools struct {
	workspace string
}

func (ft *fileTools) handle(ctx context.Context, args map[string]any) (string, error) {
	action, _ := args["action"].(string)
	path, _ := args["path"].(string)

	switch action {
	case "read_file":
		return ft.read(path)
	case "write_file":
		content, _ := args["content"].(string)
		return ft.write(path, content)
	case "list_dir":
		if path == "" {
			path = "."
		}
		return ft.list(path)
	default:
		return "", fmt.Errorf("unknown action %q: must be read_file, write_file, or list_dir", action)
	}
}

// resolve maps a user-supplied path into the workspace and rejects
// anything that escapes it.
func (ft *fileTools) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	abs := filepath.Join(ft.workspace, filepath.Clean("/"+path))
	rel, err := filepath.Rel(ft.workspace, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return abs, nil
}

func (ft *fileTools) read(path string) (string, error) {
	abs, err := ft.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > maxFileReadBytes {
		cut := maxFileReadBytes
		// Back up rather than split a multi-byte rune at the cut.
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		return string(data[:cut]) + "\n[truncated]", nil
	}
	return string(data), nil
}

func (ft *fileTools) write(path, content string) (string, error) {
	abs, err := ft.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

func (ft *fileTools) list(path string) (string, error) {
	abs, err := ft.resolve(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", path, err)
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Directory %s is empty", path), nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}
