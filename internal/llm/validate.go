package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled holds schemas by Name. Worksheet schemas are few and fixed, so
// entries are never evicted.
var compiled = struct {
	sync.RWMutex
	byName map[string]*jsonschema.Schema
}{byName: make(map[string]*jsonschema.Schema)}

// CompileSchema compiles s, caching it under s.Name. Calling it at start-up
// surfaces a bad definition before the first model call.
func CompileSchema(s *Schema) (*jsonschema.Schema, error) {
	compiled.RLock()
	c, ok := compiled.byName[s.Name]
	compiled.RUnlock()
	if ok {
		return c, nil
	}

	// jsonschema wants decoded JSON values, not Go maps with typed slices.
	raw, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("schema %q: marshal definition: %w", s.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema %q: decode definition: %w", s.Name, err)
	}

	url := "mem://schemas/" + s.Name + ".json"
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	c, err = comp.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %q: compile: %w", s.Name, err)
	}

	compiled.Lock()
	compiled.byName[s.Name] = c
	compiled.Unlock()
	return c, nil
}

// ValidateJSON checks raw against schema. A nil schema accepts anything.
// Failures are *ErrInvalidResponse carrying raw as Text.
func ValidateJSON(schema *Schema, raw []byte) error {
	if schema == nil {
		return nil
	}
	invalid := func(err error) error {
		return &ErrInvalidResponse{Text: string(raw), Err: err}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return invalid(fmt.Errorf("invalid JSON: %w", err))
	}
	c, err := CompileSchema(schema)
	if err != nil {
		return invalid(err)
	}
	if err := c.Validate(doc); err != nil {
		return invalid(fmt.Errorf("does not match %s: %w", schema.Name, err))
	}
	return nil
}

// checkStructured enforces the request schema on a provider reply. A reply
// cut off by the token limit is reported as ErrMaxTokensExceeded since no
// amount of repair recovers the missing text.
func checkStructured(schema *Schema, resp *Response) error {
	if schema == nil {
		return nil
	}
	err := ValidateJSON(schema, []byte(resp.Text))
	if err != nil && resp.StopReason == StopMaxTokens {
		return &ErrMaxTokensExceeded{Text: resp.Text}
	}
	return err
}
