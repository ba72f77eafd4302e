package llm

import (
	"context"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	Text       string
	Usage      Usage
	StopReason string // StopEnd when empty
	Err        error
}

// MockProvider replays scripted replies in order and records every
// request. With the script exhausted it answers with the fallback if one
// is set, otherwise with ErrProviderUnavailable.
type MockProvider struct {
	mu       sync.Mutex
	script   []MockResponse
	fallback *MockResponse
	requests []Request
}

// NewMockProvider returns a MockProvider that replays responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	var next MockResponse
	switch {
	case len(m.script) > 0:
		next, m.script = m.script[0], m.script[1:]
	case m.fallback != nil:
		next = *m.fallback
	default:
		return nil, &ErrProviderUnavailable{}
	}
	if next.Err != nil {
		return nil, next.Err
	}

	stop := next.StopReason
	if stop == "" {
		stop = StopEnd
	}
	return &Response{Text: next.Text, Usage: next.Usage, Model: m.ModelID(), StopReason: stop}, nil
}

func (m *MockProvider) ModelID() string {
	return ProviderMock
}

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// SetFallback sets the reply used once the script runs out.
func (m *MockProvider) SetFallback(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &resp
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received, oldest first.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// LastRequest returns the most recent request, or false if none was made.
func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}
