package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const clipLimit = 200

// Truncate flattens a value to a single clipped line for inline log fields.
func Truncate(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	if value == "" {
		return "<empty>"
	}
	if len(value) > clipLimit {
		return value[:clipLimit] + "..."
	}
	return value
}

func FormatEventLine(event Event) string {
	ts := event.Time.Format("15:04:05")
	level := strings.ToUpper(event.Level.String())
	fields := ""
	if len(event.Fields) > 0 {
		parts := make([]string, 0, len(event.Fields))
		for _, key := range orderedFieldKeys(event.Fields) {
			parts = append(parts, fmt.Sprintf("%s=%s", key, formatFieldValue(event.Fields[key])))
		}
		fields = " " + strings.Join(parts, " ")
	}
	return fmt.Sprintf("%s [%s] %s%s\n", ts, level, event.Message, fields)
}

func formatFieldValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	switch v := value.(type) {
	case error:
		return Truncate(v.Error())
	case string:
		if pretty, ok := prettyJSON(v); ok {
			return pretty
		}
		return v
	case []byte:
		return formatFieldValue(string(v))
	default:
		return fmt.Sprintf("%v", value)
	}
}

// prettyJSON re-indents a JSON object or array carried in a string field.
// Plain text passes through unchanged.
func prettyJSON(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return "", false
	}
	switch decoded.(type) {
	case map[string]any, []any:
	default:
		return "", false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decoded); err != nil {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}

// orderedFieldKeys sorts field keys, moving multi-line payload fields last so
// inline key=value pairs stay together.
func orderedFieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	inline := make([]string, 0, len(keys))
	payloads := make([]string, 0, len(keys))
	for _, key := range keys {
		if isPayloadFieldKey(key) {
			payloads = append(payloads, key)
			continue
		}
		inline = append(inline, key)
	}
	return append(inline, payloads...)
}

func isPayloadFieldKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "payload", "response", "body", "data":
		return true
	default:
		return false
	}
}
