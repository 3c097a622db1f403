package logging

import (
	"strings"
	"testing"
)

type structPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPrettyJSONString_EmbeddedJSONSuffixIgnored(t *testing.T) {
	input := `500 Internal Server Error: {"message":"failed","status":500}`
	if _, ok := prettyJSONString(input); ok {
		t.Fatalf("expected embedded JSON suffix to be ignored")
	}
}

func TestOrderedFieldKeys_PayloadJSONLast(t *testing.T) {
	fields := map[string]any{
		"status":  "500",
		"payload": `{"message":"failed","status":500}`,
		"error":   "request failed",
	}
	keys := orderedFieldKeys(fields)
	if len(keys) != 3 {
		t.Fatalf("unexpected keys length: %d", len(keys))
	}
	if keys[len(keys)-1] != "payload" {
		t.Fatalf("expected payload last, got %v", keys)
	}
}

func TestPrettyJSONString_StructField(t *testing.T) {
	pretty, ok := prettyJSONString(structPayload{Name: "abc", Count: 2})
	if !ok {
		t.Fatalf("expected struct to be rendered as pretty JSON")
	}
	if pretty == "" || pretty[0] != '{' {
		t.Fatalf("expected pretty JSON object, got %q", pretty)
	}
}

func TestTruncateCollapsesNewlines(t *testing.T) {
	got := Truncate("first\nsecond\r\nthird")
	if strings.ContainsAny(got, "\n\r") {
		t.Fatalf("Truncate() = %q, want single line", got)
	}
	if got := Truncate("   "); got != "<empty>" {
		t.Fatalf("Truncate(blank) = %q, want <empty>", got)
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("one\r\ntwo\rthree\n")
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("SplitLines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitLines()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if got := SplitLines(""); len(got) != 1 || got[0] != "" {
		t.Fatalf("SplitLines(empty) = %v, want one empty line", got)
	}
}

func TestFormatHTTPPayloadUnwrapsQuotedJSON(t *testing.T) {
	got := FormatHTTPPayload([]byte(`"{\"error\":\"bad channel\"}"`))
	if !strings.Contains(got, `"error": "bad channel"`) {
		t.Fatalf("FormatHTTPPayload() = %q, want pretty error body", got)
	}
}
