package logging

import (
	"encoding/json"
	"strings"
)

// FormatHTTPPayload normalizes HTTP bodies for log output, decoding JSON so
// escaped characters render cleanly.
func FormatHTTPPayload(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "<empty>"
	}

	// Bodies that are a single JSON string: unwrap before pretty-printing.
	var quoted string
	if err := json.Unmarshal([]byte(trimmed), &quoted); err == nil {
		trimmed = strings.TrimSpace(quoted)
	}

	if pretty, ok := prettyJSON(trimmed); ok {
		return pretty
	}
	return trimmed
}
