package llm

import "strings"

// Price is the USD list price of a model per million tokens.
type Price struct {
	In  float64
	Out float64
}

// Cost returns the USD cost of a call with the given token counts.
func (p Price) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*p.In + float64(outputTokens)*p.Out) / 1e6
}

// LookupCost returns the price of model, or nil when it is not listed.
// OpenRouter IDs (vendor/model) fall back to the bare model name.
func LookupCost(model string) *Price {
	if p, ok := prices[model]; ok {
		return &p
	}
	if _, bare, ok := strings.Cut(model, "/"); ok {
		if p, ok := prices[bare]; ok {
			return &p
		}
	}
	return nil
}

// prices covers the models the friendly names resolve to plus common
// overrides. DeepSeek is billed at the cache-miss input rate.
var prices = map[string]Price{
	"deepseek-chat":     {0.27, 1.1},
	"deepseek-reasoner": {0.55, 2.19},

	"claude-haiku-4-5":          {1, 5},
	"claude-haiku-4-5-20251001": {1, 5},
	"claude-sonnet-4-20250514":  {3, 15},
	"claude-sonnet-4-5":         {3, 15},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-5-mini":   {0.25, 2},

	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},
}
