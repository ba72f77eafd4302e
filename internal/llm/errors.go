package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Stop reasons reported on Response.StopReason.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// ErrRateLimit is a 429 from the provider. Nothing here retries; the
// next sweep or request tries again.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is a structured-output reply that failed the request
// schema. Text keeps the reply so callers can still try to recover a
// worksheet from it.
type ErrInvalidResponse struct {
	Text string
	Err  error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers transport failures, 5xx replies and an
// exhausted mock.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is a structured reply cut off at MaxTokens. Text
// holds the partial output.
type ErrMaxTokensExceeded struct {
	Text string
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("LLM response truncated at max tokens (%d bytes received)", len(e.Text))
}

// ReplyText returns the model text carried by an invalid or truncated
// reply error, and false for any other error.
func ReplyText(err error) (string, bool) {
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) && inv.Text != "" {
		return inv.Text, true
	}
	var trunc *ErrMaxTokensExceeded
	if errors.As(err, &trunc) && trunc.Text != "" {
		return trunc.Text, true
	}
	return "", false
}

// ErrorKind labels err for logs and recorded events.
func ErrorKind(err error) string {
	var (
		rate  *ErrRateLimit
		inv   *ErrInvalidResponse
		down  *ErrProviderUnavailable
		trunc *ErrMaxTokensExceeded
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rate):
		return "rate_limit"
	case errors.As(err, &trunc):
		return "max_tokens"
	case errors.As(err, &inv):
		return "invalid_response"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.As(err, &down):
		return "unavailable"
	}
	return "other"
}

// statusError maps an SDK error carrying an HTTP status onto the typed
// errors above. Anything that is not a 429 counts as unavailable.
func statusError(status int, header http.Header, err error) error {
	if status == http.StatusTooManyRequests {
		return &ErrRateLimit{RetryAfter: retryAfter(header), Err: err}
	}
	return &ErrProviderUnavailable{Err: err}
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
