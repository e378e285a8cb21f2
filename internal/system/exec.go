package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// commandTimeout bounds any single external utility invocation.
const commandTimeout = 15 * time.Second

// ExecCapturer captures the screen by running an external command.
// The command receives the output path as its final argument, or in
// place of a {path} placeholder if one is present. Typical commands:
// "scrot" (X11), "grim" (Wayland), "screencapture -x" (macOS).
type ExecCapturer struct {
	// Command is the capture command line, split on whitespace.
	Command string
	// Dir is where screenshot files are written.
	Dir string
}

// NewExecCapturer creates a capturer that stores screenshots under dir.
func NewExecCapturer(command, dir string) *ExecCapturer {
	return &ExecCapturer{Command: command, Dir: dir}
}

// Capture runs the configured command and returns the written path.
func (c *ExecCapturer) Capture(ctx context.Context) (string, error) {
	if c.Command == "" {
		return "", fmt.Errorf("screenshot command not configured")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(c.Dir, fmt.Sprintf("screen-%d.png", time.Now().UnixMilli()))

	parts := strings.Fields(c.Command)
	replaced := false
	for i, p := range parts {
		if p == "{path}" {
			parts[i] = path
			replaced = true
		}
	}
	if !replaced {
		parts = append(parts, path)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, parts[0], parts[1:]...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("capture command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("capture command produced no file at %s", path)
	}
	return path, nil
}

// ExecInput drives keyboard and mouse through an xdotool-compatible
// command.
type ExecInput struct {
	// Command is the base command, "xdotool" by default.
	Command string
}

// NewExecInput creates an input driver backed by the given command.
func NewExecInput(command string) *ExecInput {
	if command == "" {
		command = "xdotool"
	}
	return &ExecInput{Command: command}
}

func (d *ExecInput) run(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, d.Command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", d.Command, args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *ExecInput) Type(ctx context.Context, text string) error {
	return d.run(ctx, "type", "--", text)
}

func (d *ExecInput) KeyClick(ctx context.Context, key string) error {
	return d.run(ctx, "key", "--", key)
}

func (d *ExecInput) MouseMove(ctx context.Context, x, y int) error {
	return d.run(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *ExecInput) MouseClick(ctx context.Context, button string) error {
	num := "1"
	switch button {
	case ButtonMiddle:
		num = "2"
	case ButtonRight:
		num = "3"
	}
	return d.run(ctx, "click", num)
}

func (d *ExecInput) Scroll(ctx context.Context, dx, dy int) error {
	// xdotool maps scroll to buttons 4/5 (vertical) and 6/7 (horizontal).
	click := func(button string, times int) error {
		for i := 0; i < times; i++ {
			if err := d.run(ctx, "click", button); err != nil {
				return err
			}
		}
		return nil
	}
	if dy > 0 {
		if err := click("5", dy); err != nil {
			return err
		}
	} else if dy < 0 {
		if err := click("4", -dy); err != nil {
			return err
		}
	}
	if dx > 0 {
		return click("7", dx)
	} else if dx < 0 {
		return click("6", -dx)
	}
	return nil
}
