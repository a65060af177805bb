package generate

import (
	"encoding/json"
	"strings"
)

// ParseHTML extracts the document from a completion. Models sometimes wrap
// the document in a markdown fence or in a JSON object with an "html" field;
// anything else is returned trimmed as-is. An empty completion, or a JSON
// wrapper whose html is blank, yields "".
func ParseHTML(text string) string {
	trimmed := stripMarkdownCodeBlocks(text)
	if trimmed == "" {
		return ""
	}

	var wrapped struct {
		HTML string `json:"html"`
	}
	if json.Unmarshal([]byte(trimmed), &wrapped) == nil && wrapped.HTML != "" {
		return strings.TrimSpace(wrapped.HTML)
	}
	return trimmed
}

// stripMarkdownCodeBlocks removes a surrounding ```lang ... ``` fence
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop the info string (html, json, ...) up to the first newline
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 && !strings.ContainsAny(trimmed[:nl], "<{") {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
