// Package mail renders worksheets as email and sends them through the
// Mailgun HTTP API.
package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/michaelssavage/spanish-worksheets/internal/logger"
)

// DefaultBaseURL is Mailgun's US region endpoint.
const DefaultBaseURL = "https://api.mailgun.net"

// ErrNotConfigured is returned by Send when the API key, the sending
// domain or the sender address is missing.
var ErrNotConfigured = errors.New("mail is not configured")

// ErrSend reports a non-2xx reply from Mailgun.
type ErrSend struct {
	Status int
	Body   string
}

func (e *ErrSend) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "<empty body>"
	}
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	return fmt.Sprintf("mailgun http %d: %s", e.Status, body)
}

// Config holds Mailgun credentials and the sender address.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	Domain  string        `yaml:"domain"`
	BaseURL string        `yaml:"base_url"`
	From    string        `yaml:"from"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the Mailgun defaults. Credentials stay empty.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 10 * time.Second,
	}
}

// Missing names the unset settings Send needs, by environment variable.
func (c Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "MAILGUN_API_KEY")
	}
	if strings.TrimSpace(c.Domain) == "" {
		missing = append(missing, "MAILGUN_DOMAIN")
	}
	if strings.TrimSpace(c.From) == "" {
		missing = append(missing, "DEFAULT_FROM_EMAIL")
	}
	return missing
}

// Message is one outgoing email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Client sends mail through Mailgun. Configuration is checked per call so
// a process without mail settings can still run everything else.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logger.Logger
}

// New returns a Client for cfg.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "mailgun"),
	}
}

// Send posts msg to the domain's messages endpoint.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if missing := c.cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrNotConfigured, strings.Join(missing, ", "))
	}
	if len(msg.To) == 0 {
		return errors.New("mailgun: at least one recipient is required")
	}

	form := url.Values{}
	form.Set("from", c.cfg.From)
	for _, to := range msg.To {
		form.Add("to", to)
	}
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Text)
	if msg.HTML != "" {
		form.Set("html", msg.HTML)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", c.cfg.BaseURL, url.PathEscape(c.cfg.Domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build mailgun request: %w", err)
	}
	req.SetBasicAuth("api", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ErrSend{Status: resp.StatusCode, Body: string(body)}
	}
	c.log.Info("email sent", "recipients", len(msg.To), "subject", msg.Subject, "latency_ms", time.Since(start).Milliseconds())
	return nil
}

// Recipients returns primary followed by extra, skipping blanks and
// case-insensitive repeats while keeping first-seen order.
func Recipients(primary string, extra ...string) []string {
	seen := make(map[string]bool, len(extra)+1)
	out := make([]string, 0, len(extra)+1)
	for _, addr := range append([]string{primary}, extra...) {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	return out
}
