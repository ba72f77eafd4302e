package worksheet

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// strategy recovers a JSON object from model text. Strategies are tried in
// order and later ones are looser.
type strategy struct {
	name string
	fn   func(raw string) (string, bool)
}

var strategies = []strategy{
	{"direct", extractDirect},
	{"fenced", extractFenced},
	{"braces", extractBraces},
}

// Extract returns the first JSON object recovered from raw, trying a
// direct parse, then a fenced code block, then the span from the first
// '{' to the last '}'. Only objects are returned; a top-level array or
// scalar is never handed back as-is.
func Extract(raw string) (string, bool) {
	text, _, ok := ExtractWithStrategy(raw)
	return text, ok
}

// ExtractWithStrategy is Extract that also reports which strategy won.
func ExtractWithStrategy(raw string) (text, name string, ok bool) {
	for _, s := range strategies {
		if text, ok := s.fn(raw); ok {
			return text, s.name, true
		}
	}
	return "", "", false
}

// extractDirect accepts raw unchanged when it is a JSON object. Other
// valid JSON, such as an array wrapping the object, falls through to the
// looser strategies, so [{"past":[]}] yields the inner object.
func extractDirect(raw string) (string, bool) {
	if isJSONObject(raw) {
		return raw, true
	}
	return "", false
}

var fencedBlock = regexp.MustCompile("(?s)```(?i:json)?[ \\t]*\\r?\\n?\\s*(\\{.*?\\})\\s*```")

// extractFenced returns the object inside the first fenced block whose
// body parses.
func extractFenced(raw string) (string, bool) {
	for _, m := range fencedBlock.FindAllStringSubmatch(raw, -1) {
		if isJSONObject(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// extractBraces takes everything from the first '{' to the last '}'.
func extractBraces(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	candidate := raw[start : end+1]
	if isJSONObject(candidate) {
		return candidate, true
	}
	return "", false
}

func isJSONObject(s string) bool {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}
