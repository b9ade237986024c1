// Package notify posts run summaries to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/version"
	"github.com/pkg/errors"
)

// Payload is the JSON body sent to the webhook.
type Payload struct {
	Tool     string        `json:"tool"`
	Root     string        `json:"root"`
	Summary  check.Summary `json:"summary"`
	Blocking int           `json:"blocking"`
	ExitCode int           `json:"exit_code"`
	Version  string        `json:"version"`
}

// NewPayload builds the payload for a finished run.
func NewPayload(r *check.Report, blocking, exitCode int) Payload {
	return Payload{
		Tool:     r.Tool,
		Root:     r.Root,
		Summary:  r.Summary(),
		Blocking: blocking,
		ExitCode: exitCode,
		Version:  version.Get().Version,
	}
}

// Notifier sends payloads with retries.
type Notifier struct {
	url      string
	attempts uint
	delay    time.Duration
	client   *http.Client
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDelay sets the initial backoff delay.
func WithDelay(d time.Duration) Option {
	return func(n *Notifier) { n.delay = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// New creates a notifier from configuration. Zero attempts means one.
func New(cfg config.NotifyConfig, opts ...Option) *Notifier {
	n := &Notifier{
		url:      cfg.Webhook,
		attempts: cfg.Attempts,
		delay:    500 * time.Millisecond,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
	if n.attempts == 0 {
		n.attempts = 1
	}
	if n.client.Timeout <= 0 {
		n.client.Timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.code, e.body)
}

// Send posts payload. Connection failures, 429 and 5xx responses are
// retried with exponential backoff; other 4xx responses fail at once.
func (n *Notifier) Send(ctx context.Context, payload any) error {
	if n.url == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode webhook payload")
	}

	err = retry.Do(
		func() error { return n.post(ctx, body) },
		retry.Attempts(n.attempts),
		retry.Delay(n.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", attempt+1).
				WithField("max_attempts", n.attempts).Warn("retrying webhook notification")
		}),
	)
	return errors.Wrapf(err, "failed to notify webhook after %d attempts", n.attempts)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(errors.Wrap(err, "failed to build webhook request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "docguard/"+version.Get().Version)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	serr := &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(snippet))}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return serr
	}
	return retry.Unrecoverable(serr)
}
