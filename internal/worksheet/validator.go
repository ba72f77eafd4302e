package worksheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
)

// Content is a parsed worksheet: section key to section value. Values are
// usually lists of sentences but are not checked.
type Content map[string]any

// ValidationError describes why a worksheet failed validation.
type ValidationError struct {
	Validator string // "parse" or "keys"
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// Validator accepts a JSON object iff its key set equals the schema
// version's required keys. Sentence counts are not checked.
type Validator struct {
	version SchemaVersion
	schema  *llm.Schema
}

// NewValidator returns a Validator for v.
func NewValidator(v SchemaVersion) *Validator {
	return &Validator{version: v, schema: v.KeySetSchema()}
}

// Validate parses text and checks its keys.
func (v *Validator) Validate(text string) (Content, error) {
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, &ValidationError{Validator: "parse", Message: err.Error()}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &ValidationError{Validator: "parse", Message: fmt.Sprintf("expected a JSON object, got %s", jsonKind(parsed))}
	}

	if err := llm.ValidateJSON(v.schema, []byte(text)); err != nil {
		var invErr *llm.ErrInvalidResponse
		if errors.As(err, &invErr) {
			return nil, &ValidationError{Validator: "keys", Message: v.describeKeys(obj)}
		}
		return nil, err
	}
	return Content(obj), nil
}

// describeKeys names the missing and unexpected keys of obj.
func (v *Validator) describeKeys(obj map[string]any) string {
	required := make(map[string]bool, len(v.version.Sections))
	for _, k := range v.version.Keys() {
		required[k] = true
	}
	var missing, extra []string
	for _, k := range v.version.Keys() {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range obj {
		if !required[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, ", "))
	}
	if len(parts) == 0 {
		return "key set does not match " + v.version.Name
	}
	return strings.Join(parts, "; ")
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
