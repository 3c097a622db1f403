package logging

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
)

const clipLimit = 240

var newlineFlattener = strings.NewReplacer("\n", " ", "\r", " ")

// Truncate collapses a value to a single clipped line for inline log fields.
func Truncate(value string) string {
	flat := strings.TrimSpace(newlineFlattener.Replace(value))
	if flat == "" {
		return "<empty>"
	}
	if len(flat) > clipLimit {
		return flat[:clipLimit] + "..."
	}
	return flat
}

// SplitLines breaks emitted log text into display lines, normalizing CRLF
// and bare CR line endings and dropping the empty trailing split a final
// newline produces.
func SplitLines(input string) []string {
	normalized := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(input)
	lines := strings.Split(normalized, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// FormatEventLine renders an event as a plain single-prefix log line.
func FormatEventLine(event Event) string {
	var b strings.Builder
	b.WriteString(event.Time.Format("15:04:05"))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(event.Level.String()))
	b.WriteString("] ")
	b.WriteString(event.Message)
	for _, key := range orderedFieldKeys(event.Fields) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(formatFieldValue(event.Fields[key]))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatFieldValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	if pretty, ok := prettyJSONString(value); ok {
		return pretty
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	if isJSONContainerKind(value) {
		if payload, err := indentJSON(value); err == nil {
			return payload
		}
	}
	return fmt.Sprintf("%v", value)
}

// isJSONContainerKind reports whether value marshals as a JSON object or
// array rather than a scalar.
func isJSONContainerKind(value any) bool {
	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}

// indentJSON marshals without HTML escaping so URLs inside payloads stay
// readable in the log panes.
func indentJSON(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// prettyJSONString reports whether value carries a JSON container and, if so,
// returns it indented. Strings with trailing or leading non-JSON text are
// left alone.
func prettyJSONString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case error:
		if v == nil {
			return "", false
		}
		return prettyJSONString(v.Error())
	case encoding.TextMarshaler:
		if text, err := v.MarshalText(); err == nil {
			return prettyJSONString(string(text))
		}
	}

	deref, ok := derefPointer(value)
	if !ok {
		return "", false
	}
	value = deref

	switch v := value.(type) {
	case string:
		return decodeJSONContainer(v)
	case []byte:
		return decodeJSONContainer(string(v))
	}
	if isJSONContainerKind(value) {
		if out, err := indentJSON(value); err == nil {
			return out, true
		}
	}
	return "", false
}

// derefPointer unwraps pointer chains, reporting ok=false when it hits nil.
func derefPointer(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return value, true
	}
	return rv.Interface(), true
}

func decodeJSONContainer(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	var decoded any
	if json.Unmarshal([]byte(trimmed), &decoded) != nil {
		return "", false
	}
	switch decoded.(type) {
	case map[string]any, []any:
		out, err := indentJSON(decoded)
		if err != nil {
			return "", false
		}
		return out, true
	default:
		return "", false
	}
}

// orderedFieldKeys sorts field keys so inline scalars come first and bulky
// JSON payload fields render last.
func orderedFieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var inline, jsonish, payloads []string
	for _, key := range keys {
		_, isJSON := prettyJSONString(fields[key])
		switch {
		case !isJSON:
			inline = append(inline, key)
		case isPayloadFieldKey(key):
			payloads = append(payloads, key)
		default:
			jsonish = append(jsonish, key)
		}
	}
	return slices.Concat(inline, jsonish, payloads)
}

var payloadFieldKeys = map[string]bool{
	"payload":       true,
	"response":      true,
	"response_body": true,
	"body":          true,
	"data":          true,
	"event_data":    true,
}

func isPayloadFieldKey(key string) bool {
	return payloadFieldKeys[strings.ToLower(strings.TrimSpace(key))]
}
