package logging

import (
	"encoding/json"
	"strings"
)

// FormatHTTPPayload normalizes an HTTP response body for log output,
// decoding JSON so escaped characters render cleanly.
func FormatHTTPPayload(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "<empty>"
	}

	// Unwrap bodies that are a JSON-encoded string, e.g. "\"{...}\"".
	var quoted string
	if err := json.Unmarshal([]byte(trimmed), &quoted); err == nil {
		trimmed = strings.TrimSpace(quoted)
	}

	if pretty, ok := decodeJSONContainer(trimmed); ok {
		return pretty
	}
	return trimmed
}
