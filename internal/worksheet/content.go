package worksheet

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseContent decodes stored worksheet JSON without checking its keys.
func ParseContent(text string) (Content, error) {
	var c Content
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("parse worksheet content: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("parse worksheet content: not an object")
	}
	return c, nil
}

// List returns the sentences of one section, see NormalizeToList.
func (c Content) List(key string) []string {
	return NormalizeToList(c[key])
}

// Sentences flattens the sections of v in order, returning at most limit
// sentences. A non-positive limit means no limit.
func (c Content) Sentences(v SchemaVersion, limit int) []string {
	var out []string
	for _, key := range v.Keys() {
		for _, s := range c.List(key) {
			if limit > 0 && len(out) == limit {
				return out
			}
			out = append(out, s)
		}
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`\.\s+`)

// NormalizeToList coerces a section value into a list of sentences.
// Lists pass through with each item stringified. Strings are split on
// `", "` (quoted items), then on "., " (sentences keep their period), then
// on ". "; anything else becomes a single item. Other values yield nil.
func NormalizeToList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case string:
		return splitSentences(val)
	default:
		return nil
	}
}

func splitSentences(s string) []string {
	switch {
	case strings.Contains(s, `", "`):
		parts := strings.Split(s, `", "`)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.Trim(strings.TrimSpace(p), `"[]`)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	case strings.Contains(s, "., "):
		parts := strings.Split(s, "., ")
		out := make([]string, 0, len(parts))
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if i < len(parts)-1 {
				p += "."
			}
			out = append(out, p)
		}
		return out
	case sentenceEnd.MatchString(strings.TrimSpace(s)):
		s = strings.TrimSpace(s)
		var out []string
		last := 0
		for _, loc := range sentenceEnd.FindAllStringIndex(s, -1) {
			out = append(out, strings.TrimSpace(s[last:loc[0]+1]))
			last = loc[1]
		}
		if rest := strings.TrimSpace(s[last:]); rest != "" {
			out = append(out, rest)
		}
		return out
	}
	return []string{s}
}
