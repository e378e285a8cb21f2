package system

import (
	"context"
	"fmt"

	"github.com/amadeus-agent/amadeus/internal/tools"
)

// ScreenshotTool returns the take_screenshot tool.
func ScreenshotTool(capturer ScreenCapturer) *tools.Tool {
	return &tools.Tool{
		Name:        "take_screenshot",
		Description: "Capture the current screen to an image file. Use this to see what is on the user's screen.",
		ArgsDoc:     `{}`,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, err := capturer.Capture(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Screenshot saved to %s", path), nil
		},
	}
}

// InputTool returns the input_control tool.
func InputTool(driver InputDriver) *tools.Tool {
	return &tools.Tool{
		Name:        "input_control",
		Description: "Control keyboard and mouse. Actions: 'type', 'key_click', 'mouse_move', 'mouse_click', 'scroll'.",
		ArgsDoc:     `{"action": "type" | "key_click" | "mouse_move" | "mouse_click" | "scroll", "text": "<type>", "key": "<key_click>", "x": <int>, "y": <int>, "button": "left" | "right" | "middle", "scroll_x": <int>, "scroll_y": <int>}`,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			action, _ := args["action"].(string)
			switch action {
			case "type":
				text, _ := args["text"].(string)
				if err := driver.Type(ctx, text); err != nil {
					return "", err
				}
				return fmt.Sprintf("Typed: %s", text), nil
			case "key_click":
				key, _ := args["key"].(string)
				if key == "" {
					return "", fmt.Errorf("key is required")
				}
				if err := driver.KeyClick(ctx, key); err != nil {
					return "", err
				}
				return fmt.Sprintf("Clicked key: %s", key), nil
			case "mouse_move":
				x := intArg(args, "x")
				y := intArg(args, "y")
				if err := driver.MouseMove(ctx, x, y); err != nil {
					return "", err
				}
				return fmt.Sprintf("Moved mouse to %d, %d", x, y), nil
			case "mouse_click":
				button, _ := args["button"].(string)
				if button == "" {
					button = ButtonLeft
				}
				if err := driver.MouseClick(ctx, button); err != nil {
					return "", err
				}
				return fmt.Sprintf("Clicked %s mouse button", button), nil
			case "scroll":
				dx := intArg(args, "scroll_x")
				dy := intArg(args, "scroll_y")
				if err := driver.Scroll(ctx, dx, dy); err != nil {
					return "", err
				}
				return fmt.Sprintf("Scrolled %d, %d", dx, dy), nil
			default:
				return "", fmt.Errorf("unknown action %q", action)
			}
		},
	}
}

// intArg reads a numeric argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
