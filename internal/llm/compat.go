package llm

import (
	"fmt"
	"net/http"
)

const (
	defaultDeepSeekBaseURL   = "https://api.deepseek.com"
	defaultDeepSeekModel     = "deepseek-chat"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// openRouterTitle is the app name OpenRouter shows in its usage pages.
	openRouterTitle = "hojas"
)

// deepseekModels maps friendly names to DeepSeek model IDs.
var deepseekModels = map[string]string{
	"deepseek":          "deepseek-chat",
	"deepseek-reasoner": "deepseek-reasoner",
}

// NewDeepSeekProvider returns a chat provider for the DeepSeek API.
// DeepSeek has JSON mode but no json_schema format.
func NewDeepSeekProvider(cfg DeepSeekConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultDeepSeekModel
	}
	p := newChatProvider(cfg.APIKey, orDefault(cfg.BaseURL, defaultDeepSeekBaseURL), resolveModel(model, deepseekModels), nil)
	p.jsonMode = true
	return p, nil
}

// NewOpenRouterProvider returns a chat provider for OpenRouter. Model IDs
// are vendor/model and pass through unmapped.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	headers := http.Header{}
	headers.Set("X-Title", openRouterTitle)
	return newChatProvider(cfg.APIKey, orDefault(cfg.BaseURL, defaultOpenRouterBaseURL), cfg.Model, headers), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
