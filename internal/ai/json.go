package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode extracts the JSON object from a provider reply, checks that every
// field declared by schema is a non-empty string and unmarshals it into out.
func Decode(raw string, schema Schema, out any) error {
	content := extractJSONObject(raw)
	if content == "" {
		return ErrEmptyResponse
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	for _, name := range schema.Names() {
		value, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: missing %q", ErrMalformedOutput, name)
		}
		text, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %q is not a string", ErrMalformedOutput, name)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: %q is empty", ErrMalformedOutput, name)
		}
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// extractJSONObject returns the outermost {...} span of a reply. A leading
// code fence line (```json) and a closing fence are dropped first; text
// without braces is returned trimmed so the decoder reports it.
func extractJSONObject(reply string) string {
	text := strings.TrimSpace(reply)
	if rest, fenced := strings.CutPrefix(text, "```"); fenced {
		if _, body, ok := strings.Cut(rest, "\n"); ok {
			rest = body
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return strings.TrimSpace(text[start : end+1])
}
