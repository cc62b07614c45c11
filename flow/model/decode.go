package model

import (
	"encoding/json"
	"strings"
)

// DecodeJSON parses a model reply that is expected to be a single JSON
// object. Models frequently wrap JSON in markdown code fences despite
// instructions not to; fences are stripped before parsing.
func DecodeJSON(reply string, v any) error {
	return json.Unmarshal([]byte(StripFences(reply)), v)
}

// StripFences removes surrounding markdown code fences from a reply,
// returning the inner content. Replies without fences pass through
// trimmed.
func StripFences(reply string) string {
	s := strings.TrimSpace(reply)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	var inner []string
	inBlock := false
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			inner = append(inner, line)
		}
	}
	return strings.Join(inner, "\n")
}
