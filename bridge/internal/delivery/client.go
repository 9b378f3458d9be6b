package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/serialbridge/serialbridge/pkg/types"
)

// StatusError reports a response outside the 2xx class.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Policy is the retry budget for one record.
type Policy struct {
	// Timeout bounds each individual POST and is the base unit of backoff.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first
	// failure. Zero means a single attempt.
	MaxRetries int
}

// Attempts returns the total attempt budget: one initial try plus retries.
func (p Policy) Attempts() int { return p.MaxRetries + 1 }

// Wait returns the pause before retry number retry (counting from 1).
// The schedule is linear — Timeout×1, Timeout×2, … — not exponential; waits
// grow strictly but stay short, matching a local bridge where the endpoint
// is either briefly busy or down long enough that the record is expendable.
func (p Policy) Wait(retry int) time.Duration {
	return p.Timeout * time.Duration(retry)
}

// Client delivers records to a single ingest endpoint.
// It is safe for concurrent use.
type Client struct {
	url     string
	headers map[string]string
	policy  Policy
	client  *http.Client

	// sleep waits for d or until ctx is cancelled. Injectable so retry
	// schedules are testable without real waits.
	sleep func(ctx context.Context, d time.Duration) error

	// onRetry, when set, is invoked before each retry attempt.
	onRetry func(retry int)
}

// New creates a Client for url. headers are added to every request and may
// be nil.
func New(url string, policy Policy, headers map[string]string) *Client {
	return &Client{
		url:     url,
		headers: headers,
		policy:  policy,
		client:  &http.Client{Timeout: policy.Timeout},
		sleep:   sleepCtx,
	}
}

// OnRetry registers a callback invoked before each retry attempt.
func (c *Client) OnRetry(fn func(retry int)) { c.onRetry = fn }

// Deliver posts rec as a JSON body, retrying per the policy. It blocks until
// the record is accepted, the budget is spent, or ctx is cancelled — callers
// that must not wait run it in its own goroutine.
//
// Success is a 2xx response, nothing else: any other status, transport
// error or timeout consumes an attempt.
func (c *Client) Deliver(ctx context.Context, rec types.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("delivery: encode record: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.Attempts(); attempt++ {
		if attempt > 1 {
			retry := attempt - 1
			if c.onRetry != nil {
				c.onRetry(retry)
			}
			if err := c.sleep(ctx, c.policy.Wait(retry)); err != nil {
				return fmt.Errorf("delivery: cancelled during backoff: %w", err)
			}
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		slog.Warn("delivery: attempt failed",
			"attempt", attempt,
			"of", c.policy.Attempts(),
			"err", lastErr,
		)
	}

	return fmt.Errorf("delivery: %d attempts exhausted: %w", c.policy.Attempts(), lastErr)
}

// post performs one POST of body and classifies the outcome.
func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
