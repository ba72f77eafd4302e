package worksheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
)

// Section is one named list of sentences in a worksheet.
type Section struct {
	Key   string // JSON key
	Title string // heading used in emails and terminal output
	// Instruction describes the section to the model. %d is replaced by
	// the sentence count.
	Instruction string
}

// Known sections. Keys are part of the stored JSON and never change.
var (
	sectionPast = Section{
		Key:         "past",
		Title:       "Past Tense",
		Instruction: "Past tense: %d sentences with a missing verb (the learner fills in the correct past form).",
	}
	sectionPresent = Section{
		Key:         "present",
		Title:       "Present Tense",
		Instruction: "Present tense: %d sentences with a missing verb (the learner fills in the correct present form).",
	}
	sectionFuture = Section{
		Key:         "future",
		Title:       "Future Tense",
		Instruction: "Future tense: %d sentences with a missing verb (the learner fills in the correct future form).",
	}
	sectionPresentFuture = Section{
		Key:         "present_future",
		Title:       "Present or Future Tense",
		Instruction: "Present or future tense: %d sentences with a missing verb.",
	}
	sectionVocab = Section{
		Key:         "vocab",
		Title:       "Vocabulary Expansion",
		Instruction: "Vocabulary expansion: %d natural sentences with mixed vocabulary.",
	}
	sectionErrorCorrection = Section{
		Key:         "error_correction",
		Title:       "Error Correction",
		Instruction: "Error correction: %d sentences that each contain exactly one grammatical mistake for the learner to find and correct.",
	}
)

// SchemaVersion fixes the closed key set of a worksheet and the number of
// sentences per section. The prompt skeleton, the validator and the email
// layout are all derived from it.
type SchemaVersion struct {
	Name     string
	Sections []Section
	Count    int
}

// DefaultSchemaVersion is used when the configuration names none.
const DefaultSchemaVersion = "v2"

var versions = map[string]SchemaVersion{
	"v1": {
		Name:     "v1",
		Sections: []Section{sectionPast, sectionPresentFuture, sectionVocab},
		Count:    10,
	},
	"v2": {
		Name:     "v2",
		Sections: []Section{sectionPast, sectionPresent, sectionFuture, sectionVocab},
		Count:    7,
	},
	"v3": {
		Name:     "v3",
		Sections: []Section{sectionPast, sectionPresent, sectionFuture, sectionErrorCorrection},
		Count:    7,
	},
}

// LookupVersion returns the named schema version.
func LookupVersion(name string) (SchemaVersion, error) {
	if name == "" {
		name = DefaultSchemaVersion
	}
	v, ok := versions[name]
	if !ok {
		return SchemaVersion{}, fmt.Errorf("unknown worksheet schema version %q (known: %s)", name, strings.Join(VersionNames(), ", "))
	}
	return v, nil
}

// VersionNames lists the known schema versions in order.
func VersionNames() []string {
	names := make([]string, 0, len(versions))
	for n := range versions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Keys returns the required section keys in display order.
func (v SchemaVersion) Keys() []string {
	keys := make([]string, len(v.Sections))
	for i, s := range v.Sections {
		keys[i] = s.Key
	}
	return keys
}

// Title returns the display title for key, or the key itself if the
// version has no such section.
func (v SchemaVersion) Title(key string) string {
	for _, s := range v.Sections {
		if s.Key == key {
			return s.Title
		}
	}
	return key
}

// Skeleton renders the JSON object the model is asked to fill in: every
// required key with Count empty strings.
func (v SchemaVersion) Skeleton() string {
	blanks := make([]string, v.Count)
	for i := range blanks {
		blanks[i] = `""`
	}
	list := "[" + strings.Join(blanks, ", ") + "]"

	var b strings.Builder
	b.WriteString("{\n")
	for i, s := range v.Sections {
		fmt.Fprintf(&b, "  %q: %s", s.Key, list)
		if i < len(v.Sections)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

// KeySetSchema is the JSON Schema the structural validator enforces: an
// object whose keys are exactly the required keys. Values are not
// constrained.
func (v SchemaVersion) KeySetSchema() *llm.Schema {
	props := make(map[string]any, len(v.Sections))
	required := make([]any, len(v.Sections))
	for i, s := range v.Sections {
		props[s.Key] = map[string]any{}
		required[i] = s.Key
	}
	return &llm.Schema{
		Name:        "worksheet-keys-" + v.Name,
		Description: "Spanish worksheet sections",
		Definition: map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

// OutputSchema is the schema sent to providers with native structured
// output: each section is a list of sentences.
func (v SchemaVersion) OutputSchema() *llm.Schema {
	props := make(map[string]any, len(v.Sections))
	required := make([]any, len(v.Sections))
	for i, s := range v.Sections {
		props[s.Key] = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": fmt.Sprintf(s.Instruction, v.Count),
		}
		required[i] = s.Key
	}
	return &llm.Schema{
		Name:        "worksheet-" + v.Name,
		Description: "Spanish worksheet with one list of sentences per section",
		Definition: map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}
