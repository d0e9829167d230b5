package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// UnmarshalResponse parses a model reply that is expected to be a single
// JSON object into out. Markdown code fences and prose around the object are
// stripped; the reply is never evaluated, only decoded.
func UnmarshalResponse(text string, out any) error {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return eris.New("anthropic: no JSON object in response")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return eris.Wrap(err, "anthropic: decode response JSON")
	}
	return nil
}

// CleanJSON extracts the outermost JSON object from a model reply, tolerating
// ```json fences and leading or trailing prose. Returns "" when no object is
// present.
func CleanJSON(text string) string {
	s := strings.TrimSpace(text)

	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
