package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with timeout and logging middleware.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderDeepSeek:
		base, err = NewDeepSeekProvider(cfg.DeepSeek)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		return newConfiguredMock(cfg.Mock)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// Wrap with middleware: caller → timeout → logging → base
	logged := WithLogging(base, cfg.Provider, eventRepo, log)
	return WithTimeout(logged, cfg.Timeout), nil
}

func newConfiguredMock(cfg MockConfig) (Provider, error) {
	m := NewMockProvider()
	if cfg.ReplyFile == "" {
		return m, nil
	}
	data, err := os.ReadFile(cfg.ReplyFile)
	if err != nil {
		return nil, fmt.Errorf("mock reply: %w", err)
	}
	m.SetFallback(MockResponse{Text: string(data)})
	return m, nil
}
