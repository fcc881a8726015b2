// Package throttle spaces outbound requests and retries throttled ones.
//
// Gate enforces a minimum interval between calls. RoundTripper wraps an
// http.RoundTripper with a Gate and a bounded retry loop for 429 responses,
// so clients built on generated API packages get the same treatment as the
// hand-written Basecamp transport.
package throttle

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMinInterval is the spacing between outbound requests.
	DefaultMinInterval = 250 * time.Millisecond

	// DefaultMaxRetries is the number of retries for 429 responses.
	DefaultMaxRetries = 5

	// MaxRetryAfter caps a server supplied Retry-After.
	MaxRetryAfter = time.Hour

	backoffBase = time.Second
	backoffCap  = 10 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Gate blocks callers until a minimum interval has passed since the
// previous call. It is safe for concurrent use.
type Gate struct {
	interval time.Duration
	now      func() time.Time
	sleep    SleepFunc

	mu   sync.Mutex
	last time.Time
}

// NewGate creates a gate. Nil now or sleep use the wall clock.
func NewGate(interval time.Duration, now func() time.Time, sleep SleepFunc) *Gate {
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Gate{interval: interval, now: now, sleep: sleep}
}

// Wait blocks until the interval has passed since the previous call, then
// records the new call time. Holding mu across the wait keeps concurrent
// callers spaced as well.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		if elapsed := g.now().Sub(g.last); elapsed < g.interval {
			if err := g.sleep(ctx, g.interval-elapsed); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.last = g.now()
	return nil
}

// RetryDelay returns the wait before retry number retry+1. A numeric
// Retry-After header wins, capped at MaxRetryAfter; otherwise 1s doubling
// per retry, capped at 10s. The bool reports whether the header was used.
func RetryDelay(header string, retry int) (time.Duration, bool) {
	secs, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64)
	if err != nil || secs < 0 {
		return Backoff(retry), false
	}
	if secs > int64(MaxRetryAfter/time.Second) {
		return MaxRetryAfter, true
	}
	return time.Duration(secs) * time.Second, true
}

// Backoff is the exponential delay for the given zero-based retry count.
func Backoff(retry int) time.Duration {
	if retry >= 4 {
		return backoffCap
	}
	return backoffBase << retry
}

// Sleep waits for d, returning early with ctx's error.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain discards a bounded amount of the body and closes it so the
// connection can be reused.
func Drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// RoundTripper sends every request through a Gate and retries 429
// responses. When the retry budget is spent the last 429 response is
// returned unread, so the caller's own error handling sees it.
type RoundTripper struct {
	base        http.RoundTripper
	minInterval time.Duration
	maxRetries  int
	logger      *log.Logger
	now         func() time.Time
	sleep       SleepFunc
	gate        *Gate
}

// Option configures a RoundTripper.
type Option func(*RoundTripper)

// WithMinInterval overrides the spacing between requests.
func WithMinInterval(d time.Duration) Option {
	return func(rt *RoundTripper) { rt.minInterval = d }
}

// WithMaxRetries overrides the retry budget for 429 responses.
func WithMaxRetries(n int) Option {
	return func(rt *RoundTripper) { rt.maxRetries = n }
}

// WithLogger sets the debug logger. Nil keeps the discarding default.
func WithLogger(l *log.Logger) Option {
	return func(rt *RoundTripper) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithClock replaces time.Now and the sleep used for spacing and backoff.
func WithClock(now func() time.Time, sleep SleepFunc) Option {
	return func(rt *RoundTripper) {
		rt.now = now
		rt.sleep = sleep
	}
}

// NewRoundTripper wraps base, or http.DefaultTransport when base is nil.
func NewRoundTripper(base http.RoundTripper, opts ...Option) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := &RoundTripper{
		base:        base,
		minInterval: DefaultMinInterval,
		maxRetries:  DefaultMaxRetries,
		logger:      log.New(io.Discard, "", 0),
		now:         time.Now,
		sleep:       Sleep,
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.gate = NewGate(rt.minInterval, rt.now, rt.sleep)
	return rt
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for retry := 0; ; retry++ {
		if err := rt.gate.Wait(ctx); err != nil {
			closeBody(req)
			return nil, err
		}

		attempt := req
		if retry > 0 {
			attempt = req.Clone(ctx)
			if hasBody(req) {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				attempt.Body = body
			}
		}

		resp, err := rt.base.RoundTrip(attempt)
		if err != nil || resp.StatusCode != http.StatusTooManyRequests {
			return resp, err
		}
		if retry >= rt.maxRetries || (hasBody(req) && req.GetBody == nil) {
			rt.logger.Printf("429 on %s %s, giving up after %d retries", req.Method, req.URL.Path, retry)
			return resp, nil
		}

		delay, fromHeader := RetryDelay(resp.Header.Get("Retry-After"), retry)
		Drain(resp)
		rt.logger.Printf("429 on %s %s, retry %d in %v (retry-after: %v)", req.Method, req.URL.Path, retry+1, delay, fromHeader)
		if err := rt.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}
