// Package system gives the agent controlled access to the host: screen
// capture and synthetic keyboard/mouse input. The contracts are narrow
// interfaces so tests can substitute fakes; the default implementations
// shell out to external utilities configured per host.
package system

import "context"

// ScreenCapturer captures the current screen to an image file and
// returns its path.
type ScreenCapturer interface {
	Capture(ctx context.Context) (path string, err error)
}

// MouseButton names for InputDriver.MouseClick.
const (
	ButtonLeft   = "left"
	ButtonRight  = "right"
	ButtonMiddle = "middle"
)

// InputDriver injects synthetic keyboard and mouse events.
type InputDriver interface {
	// Type sends the literal text as keystrokes.
	Type(ctx context.Context, text string) error
	// KeyClick presses and releases a named key (Return, Tab, Escape).
	KeyClick(ctx context.Context, key string) error
	// MouseMove moves the pointer to absolute screen coordinates.
	MouseMove(ctx context.Context, x, y int) error
	// MouseClick clicks the named button at the current position.
	MouseClick(ctx context.Context, button string) error
	// Scroll scrolls by the given horizontal and vertical amounts.
	Scroll(ctx context.Context, dx, dy int) error
}
