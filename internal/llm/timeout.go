package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout marks a call cut off by TimeoutProvider.
var ErrTimeout = errors.New("no reply before the deadline")

// TimeoutProvider is a decorator that bounds each Generate call. It takes
// the place of retries: a call either finishes within the budget or fails
// with ErrProviderUnavailable wrapping ErrTimeout and
// context.DeadlineExceeded.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps a Provider with a per-request deadline. A zero or
// negative timeout returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: timeout}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.inner.Generate(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &ErrProviderUnavailable{Err: fmt.Errorf("%w (%s): %w", ErrTimeout, t.timeout, err)}
	}
	return resp, err
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
