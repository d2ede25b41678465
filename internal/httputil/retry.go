// Package httputil provides HTTP helpers shared by the outbound clients.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Retrier executes HTTP requests and retries throttled responses (429 and
// 503) with exponential backoff. A Retry-After header in seconds overrides
// the computed delay, capped at MaxDelay.
type Retrier struct {
	Client     *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     *zap.Logger
}

// NewRetrier returns a Retrier with defaults sized for interactive calls:
// two retries starting at 500ms.
func NewRetrier(client *http.Client, logger *zap.Logger) *Retrier {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		Client:     client,
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Logger:     logger,
	}
}

// Do sends req and retries while the server throttles. After exhausting
// retries the last throttled response is returned so the caller can inspect
// it. If ctx is cancelled during a backoff wait, Do returns ctx.Err().
func (r *Retrier) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := r.Client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !throttled(resp.StatusCode) || attempt >= r.MaxRetries {
			return resp, nil
		}

		wait := r.delay(attempt, resp.Header.Get("Retry-After"))

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		r.Logger.Debug("throttled, retrying",
			zap.String("host", req.URL.Host),
			zap.Int("status", resp.StatusCode),
			zap.Duration("wait", wait),
			zap.Int("attempt", attempt+1),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (r *Retrier) delay(attempt int, retryAfter string) time.Duration {
	wait := r.BaseDelay << attempt
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	}
	if r.MaxDelay > 0 && wait > r.MaxDelay {
		wait = r.MaxDelay
	}
	return wait
}

func throttled(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}
