package api

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// md renders assistant markdown for the history endpoint and the chat
// page. Raw HTML in model output stays escaped.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

func renderMarkdown(source string) (string, error) {
	var b strings.Builder
	if err := md.Convert([]byte(source), &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
