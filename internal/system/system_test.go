package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeCapturer struct {
	path string
	err  error
}

func (f *fakeCapturer) Capture(ctx context.Context) (string, error) {
	return f.path, f.err
}

type fakeDriver struct {
	calls []string
	err   error
}

func (f *fakeDriver) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeDriver) Type(ctx context.Context, text string) error {
	return f.record("type:" + text)
}

func (f *fakeDriver) KeyClick(ctx context.Context, key string) error {
	return f.record("key:" + key)
}

func (f *fakeDriver) MouseMove(ctx context.Context, x, y int) error {
	return f.record(fmt.Sprintf("move:%d,%d", x, y))
}

func (f *fakeDriver) MouseClick(ctx context.Context, button string) error {
	return f.record("click:" + button)
}

func (f *fakeDriver) Scroll(ctx context.Context, dx, dy int) error {
	return f.record(fmt.Sprintf("scroll:%d,%d", dx, dy))
}

func TestScreenshotTool(t *testing.T) {
	tool := ScreenshotTool(&fakeCapturer{path: "/tmp/shots/screen-1.png"})
	if tool.Name != "take_screenshot" {
		t.Errorf("name = %q", tool.Name)
	}

	out, err := tool.Handler(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(out, "/tmp/shots/screen-1.png") {
		t.Errorf("output = %q", out)
	}
}

func TestScreenshotToolError(t *testing.T) {
	wantErr := errors.New("no display")
	tool := ScreenshotTool(&fakeCapturer{err: wantErr})
	if _, err := tool.Handler(context.Background(), nil); !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestInputToolActions(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		wantCall string
		wantOut  string
	}{
		{
			name:     "type",
			args:     map[string]any{"action": "type", "text": "hello"},
			wantCall: "type:hello",
			wantOut:  "Typed: hello",
		},
		{
			name:     "key click",
			args:     map[string]any{"action": "key_click", "key": "Return"},
			wantCall: "key:Return",
			wantOut:  "Clicked key: Return",
		},
		{
			name:     "mouse move",
			args:     map[string]any{"action": "mouse_move", "x": float64(10), "y": float64(20)},
			wantCall: "move:10,20",
			wantOut:  "Moved mouse to 10, 20",
		},
		{
			name:     "mouse click default button",
			args:     map[string]any{"action": "mouse_click"},
			wantCall: "click:left",
			wantOut:  "Clicked left mouse button",
		},
		{
			name:     "scroll",
			args:     map[string]any{"action": "scroll", "scroll_x": float64(1), "scroll_y": float64(-2)},
			wantCall: "scroll:1,-2",
			wantOut:  "Scrolled 1, -2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := &fakeDriver{}
			tool := InputTool(driver)
			out, err := tool.Handler(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if out != tt.wantOut {
				t.Errorf("output = %q, want %q", out, tt.wantOut)
			}
			if len(driver.calls) != 1 || driver.calls[0] != tt.wantCall {
				t.Errorf("calls = %v, want [%s]", driver.calls, tt.wantCall)
			}
		})
	}
}

func TestInputToolBadArgs(t *testing.T) {
	tool := InputTool(&fakeDriver{})
	if _, err := tool.Handler(context.Background(), map[string]any{"action": "dance"}); err == nil {
		t.Error("unknown action succeeded")
	}
	if _, err := tool.Handler(context.Background(), map[string]any{"action": "key_click"}); err == nil {
		t.Error("key_click without key succeeded")
	}
}

func TestExecCapturerUnconfigured(t *testing.T) {
	c := NewExecCapturer("", t.TempDir())
	if _, err := c.Capture(context.Background()); err == nil {
		t.Error("Capture() with no command succeeded")
	}
}

func TestExecCapturerWritesFile(t *testing.T) {
	dir := t.TempDir()
	// "touch {path}" stands in for a real capture utility.
	c := NewExecCapturer("touch {path}", dir)
	path, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("path %q not under %q", path, dir)
	}
}

func TestExecCapturerMissingOutput(t *testing.T) {
	c := NewExecCapturer("true", t.TempDir())
	if _, err := c.Capture(context.Background()); err == nil {
		t.Error("Capture() succeeded despite no file written")
	}
}
