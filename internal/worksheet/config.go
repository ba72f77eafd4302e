package worksheet

import (
	"errors"
	"fmt"
)

// LLM purpose labels recorded with every request.
const (
	PurposeGenerate    = "worksheet-gen"
	PurposeRepair      = "worksheet-repair"
	PurposePassthrough = "passthrough"
)

// Config controls worksheet generation.
type Config struct {
	// SchemaVersion selects the section layout. Default: "v2".
	SchemaVersion string `yaml:"schema_version"`

	// Pools is the theme rotation. Default: DefaultPools.
	Pools [][]string `yaml:"pools"`

	// Repair enables the single structural repair request when no JSON
	// object can be extracted from the first reply.
	Repair bool `yaml:"repair"`

	// MaxTokens is the token budget for each LLM response.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature of generation requests.
	Temperature float64 `yaml:"temperature"`

	// RepairTemperature is the sampling temperature of repair requests.
	// Providers omit a zero temperature, so 0 means the provider default
	// (1.0 on DeepSeek and OpenAI). Default: 0.2.
	RepairTemperature float64 `yaml:"repair_temperature"`

	// ForbiddenSentences caps how many sentences of the user's current
	// worksheet are listed as off limits. Zero disables the list.
	ForbiddenSentences int `yaml:"forbidden_sentences"`

	// StructuredOutput asks the provider for schema-constrained JSON.
	StructuredOutput bool `yaml:"structured_output"`
}

// DefaultConfig returns the recommended generation settings.
func DefaultConfig() Config {
	return Config{
		SchemaVersion:      DefaultSchemaVersion,
		Pools:              DefaultPools,
		Repair:             true,
		MaxTokens:          4096,
		Temperature:        0.7,
		RepairTemperature:  0.2,
		ForbiddenSentences: 10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := LookupVersion(c.SchemaVersion); err != nil {
		return err
	}
	if err := ValidatePools(c.Pools); err != nil {
		return err
	}
	if c.MaxTokens < 0 {
		return errors.New("worksheet max_tokens must not be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("worksheet temperature %.2f out of range [0, 2]", c.Temperature)
	}
	if c.RepairTemperature < 0 || c.RepairTemperature > 2 {
		return fmt.Errorf("worksheet repair_temperature %.2f out of range [0, 2]", c.RepairTemperature)
	}
	if c.ForbiddenSentences < 0 {
		return errors.New("worksheet forbidden_sentences must not be negative")
	}
	return nil
}
