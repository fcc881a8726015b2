package basecamp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"bcload/internal/service"
	"bcload/internal/throttle"
)

const (
	// MinInterval is the default spacing between outbound requests.
	MinInterval = throttle.DefaultMinInterval

	// MaxRetries is the default number of retries for 429 responses.
	MaxRetries = throttle.DefaultMaxRetries
)

// RequestOptions describes a single call. A nil *RequestOptions is a GET
// with no body.
type RequestOptions struct {
	Method string
	Body   []byte
	Header http.Header
}

// Transport sends requests to one API host through a spacing gate and a
// bounded retry loop for throttled responses. The zero value is not usable;
// use NewTransport.
type Transport struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	userAgent   string
	minInterval time.Duration
	maxRetries  int
	logger      *log.Logger
	gate        *throttle.Gate

	now   func() time.Time
	sleep throttle.SleepFunc
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.httpClient = c }
}

// WithUserAgent overrides the identifying user agent.
func WithUserAgent(ua string) TransportOption {
	return func(t *Transport) { t.userAgent = ua }
}

// WithMinInterval overrides the spacing between requests.
func WithMinInterval(d time.Duration) TransportOption {
	return func(t *Transport) { t.minInterval = d }
}

// WithMaxRetries overrides the retry budget for 429 responses.
func WithMaxRetries(n int) TransportOption {
	return func(t *Transport) { t.maxRetries = n }
}

// WithLogger sets the debug logger. Nil keeps the discarding default.
func WithLogger(l *log.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock replaces time.Now and the sleep used by the spacing gate and
// backoff waits.
func WithClock(now func() time.Time, sleep throttle.SleepFunc) TransportOption {
	return func(t *Transport) {
		t.now = now
		t.sleep = sleep
	}
}

// NewTransport creates a transport for baseURL authenticated with token.
func NewTransport(baseURL, token string, opts ...TransportOption) *Transport {
	t := &Transport{
		httpClient:  http.DefaultClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		userAgent:   DefaultUserAgent,
		minInterval: MinInterval,
		maxRetries:  MaxRetries,
		logger:      log.New(io.Discard, "", 0),
		now:         time.Now,
		sleep:       throttle.Sleep,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.gate = throttle.NewGate(t.minInterval, t.now, t.sleep)
	return t
}

// BaseURL returns the URL relative endpoints are resolved against.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Send issues a request to endpoint, which is either relative to the base URL
// or absolute. On success the response is returned with its body unread; the
// caller must close it. 429 responses are retried up to the retry budget,
// honoring Retry-After; any other non-2xx status yields *service.APIError.
func (t *Transport) Send(ctx context.Context, endpoint string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	url := t.resolve(endpoint)

	for retry := 0; ; retry++ {
		if err := t.gate.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := t.do(ctx, method, url, opts)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay, fromHeader := throttle.RetryDelay(resp.Header.Get("Retry-After"), retry)
			throttle.Drain(resp)
			if retry >= t.maxRetries {
				return nil, fmt.Errorf("%s %s: %w after %d retries", method, endpoint, service.ErrRateLimitExceeded, retry)
			}
			t.logger.Printf("429 on %s %s, retry %d in %v (retry-after: %v)", method, endpoint, retry+1, delay, fromHeader)
			if err := t.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%s %s: %w", method, endpoint, &service.APIError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(body)),
			})
		}

		return resp, nil
	}
}

func (t *Transport) do(ctx context.Context, method, url string, opts *RequestOptions) (*http.Response, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range opts.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	t.logger.Printf("%s %s", method, url)
	return t.httpClient.Do(req)
}

func (t *Transport) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return t.baseURL + endpoint
}

// relative strips the base URL from an absolute link so it routes through
// the same endpoint handling as the first request.
func (t *Transport) relative(link string) string {
	if strings.HasPrefix(link, t.baseURL+"/") {
		return strings.TrimPrefix(link, t.baseURL)
	}
	return link
}
