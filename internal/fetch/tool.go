package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/amadeus-agent/amadeus/internal/tools"
)

// Tool returns the browser_automation tool backed by the given fetcher.
// The model supplies a URL and receives the page title plus extracted
// text as the observation.
func Tool(f *Fetcher) *tools.Tool {
	return &tools.Tool{
		Name:        "browser_automation",
		Description: "Open a web page. Actions: 'navigate'. Returns the page title and its readable text.",
		ArgsDoc:     `{"action": "navigate", "url": "<address>"}`,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			action, _ := args["action"].(string)
			if action != "" && action != "navigate" {
				return "", fmt.Errorf("unknown action %q: must be navigate", action)
			}
			url, _ := args["url"].(string)
			if url == "" {
				return "", fmt.Errorf("url is required")
			}

			page, err := f.Fetch(ctx, url, 0)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			if page.Title != "" {
				fmt.Fprintf(&b, "Title: %s\n\n", page.Title)
			}
			b.WriteString(page.Content)
			if page.Truncated {
				b.WriteString("\n[truncated]")
			}
			return b.String(), nil
		},
	}
}
