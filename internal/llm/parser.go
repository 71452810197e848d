package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFences removes a surrounding markdown code fence from a completion,
// if present. Models frequently wrap JSON in ```json ... ``` even when asked
// not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first top-level JSON object embedded in a
// completion. Models sometimes prepend prose before the object; this skips it
// by bracket matching from the first '{'.
func ExtractJSONObject(s string) (string, bool) {
	s = StripCodeFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// UnmarshalCompletion parses a completion that is expected to carry a JSON
// object, tolerating code fences and surrounding prose.
func UnmarshalCompletion(text string, v any) error {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return fmt.Errorf("no JSON object in completion")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to parse completion JSON: %w", err)
	}
	return nil
}
