package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
	"github.com/michaelssavage/spanish-worksheets/internal/store"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Text: `{"a":1}`, Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Text: `{"b":2}`, StopReason: StopMaxTokens},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp1.Text != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Text)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != StopEnd {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.Text != `{"b":2}` || resp2.StopReason != StopMaxTokens {
		t.Fatalf("second response = %+v", resp2)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error from empty queue")
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_Fallback(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "first"})
	mock.SetFallback(MockResponse{Text: "again"})

	for i, want := range []string{"first", "again", "again"} {
		resp, err := mock.Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.Text != want {
			t.Fatalf("call %d: text = %q, want %q", i, resp.Text, want)
		}
	}
	if n := len(mock.Requests()); n != 3 {
		t.Fatalf("Requests() = %d, want 3", n)
	}
}

func TestNewProvider_MockReplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.json")
	if err := os.WriteFile(path, []byte(`{"past":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	cfg.Mock.ReplyFile = path

	p, err := NewProvider(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != `{"past":[]}` {
		t.Fatalf("text = %q", resp.Text)
	}

	cfg.Mock.ReplyFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := NewProvider(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected error for a missing reply file")
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: `{}`})

	if _, ok := mock.LastRequest(); ok {
		t.Fatal("expected no last request before any call")
	}

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hola"}},
	}
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	last, ok := mock.LastRequest()
	if !ok || last.System != "sys" {
		t.Fatalf("last request = %+v", last)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 0}},
	)

	_, err := mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, "worksheet-gen")
	if p := PurposeFrom(ctx); p != "worksheet-gen" {
		t.Fatalf("expected 'worksheet-gen', got %q", p)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderDeepSeek {
		t.Fatalf("provider = %q, want deepseek", cfg.Provider)
	}
	if cfg.DeepSeek.Model != "deepseek-chat" || cfg.DeepSeek.BaseURL != "https://api.deepseek.com" {
		t.Fatalf("deepseek = %+v", cfg.DeepSeek)
	}
	if cfg.Timeout <= 0 {
		t.Fatalf("timeout = %s, want positive", cfg.Timeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "deepseek without key",
			cfg:     Config{Provider: "deepseek"},
			wantErr: true,
		},
		{
			name:    "deepseek with key",
			cfg:     Config{Provider: "deepseek", DeepSeek: DeepSeekConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic"},
			wantErr: true,
		},
		{
			name:    "openai with key",
			cfg:     Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}},
			wantErr: false,
		},
		{
			name:    "openrouter without key",
			cfg:     Config{Provider: "openrouter"},
			wantErr: true,
		},
		{
			name:    "mock needs no key",
			cfg:     Config{Provider: "mock"},
			wantErr: false,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Provider: "mock", Timeout: -time.Second},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: ProviderDeepSeek}, &memEventRepo{}, logger.Nop())
	if err == nil || !strings.Contains(err.Error(), "DEEPSEEK_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestNewProvider_WrapsDeepSeek(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeepSeek.APIKey = "sk-test"
	p, err := NewProvider(context.Background(), cfg, &memEventRepo{}, logger.Nop())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, ok := p.(*TimeoutProvider); !ok {
		t.Fatalf("provider = %T, want *TimeoutProvider", p)
	}
	if p.ModelID() != "deepseek-chat" {
		t.Fatalf("model = %q", p.ModelID())
	}
}

// memEventRepo is an in-memory store.EventRepo.
type memEventRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *memEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, data)
	return nil
}

func (r *memEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMRequestEvent, error) {
	return nil, nil
}

func (r *memEventRepo) GetLLMEvent(context.Context, int) (*store.LLMRequestEvent, error) {
	return nil, nil
}

func (r *memEventRepo) LLMUsageByPurpose(context.Context) ([]store.LLMUsage, error) {
	return nil, nil
}

func (r *memEventRepo) LLMUsageByModel(context.Context) ([]store.LLMUsage, error) {
	return nil, nil
}

func TestWithLogging_RecordsSuccess(t *testing.T) {
	repo := &memEventRepo{}
	mock := NewMockProvider(MockResponse{Text: "respuesta", Usage: Usage{InputTokens: 7, OutputTokens: 3}})
	p := WithLogging(mock, "deepseek", repo, logger.Nop())

	ctx := WithPurpose(context.Background(), "worksheet-gen")
	_, err := p.Generate(ctx, Request{
		System:   "sistema",
		Messages: []Message{{Role: RoleUser, Content: "pregunta"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(repo.events) != 1 {
		t.Fatalf("events = %d, want 1", len(repo.events))
	}
	e := repo.events[0]
	if e.Provider != "deepseek" || e.Model != "mock" || e.Purpose != "worksheet-gen" {
		t.Errorf("event = %+v", e)
	}
	if !e.Success || e.InputTokens != 7 || e.OutputTokens != 3 {
		t.Errorf("event = %+v", e)
	}
	if e.ResponseBody != "respuesta" {
		t.Errorf("response body = %q", e.ResponseBody)
	}
	if !strings.Contains(e.RequestBody, "[system]\nsistema") || !strings.Contains(e.RequestBody, "[user]\npregunta") {
		t.Errorf("request body = %q", e.RequestBody)
	}
}

func TestWithLogging_RecordsFailure(t *testing.T) {
	repo := &memEventRepo{}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("boom")}})
	p := WithLogging(mock, "deepseek", repo, logger.Nop())

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.events) != 1 || repo.events[0].Success {
		t.Fatalf("events = %+v", repo.events)
	}
	if !strings.Contains(repo.events[0].ErrorMessage, "boom") {
		t.Errorf("error message = %q", repo.events[0].ErrorMessage)
	}
}

func TestWithLogging_RepoFailureIsNotFatal(t *testing.T) {
	repo := &memEventRepo{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Text: "ok"})
	p := WithLogging(mock, "mock", repo, logger.Nop())

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("text = %q", resp.Text)
	}
}
