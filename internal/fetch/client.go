package fetch

import (
	"bytes"
	"context"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "webaudit/1.0"

// Client is the shared HTTP fetcher. It retries transient network
// failures with jittered exponential backoff; application responses
// (4xx/5xx included) are returned as-is, never retried. Concurrency
// control is the caller's job.
type Client struct {
	httpClient    *http.Client
	limiters      map[string]*rate.Limiter
	limitersMu    sync.RWMutex
	rateLimit     int
	retryAttempts int
	maxBodyBytes  int64
	userAgent     string
	rng           *rand.Rand
	rngMu         sync.Mutex
}

// Response is a fully-read HTTP exchange result.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func NewClient(timeout time.Duration, rateLimit, retryAttempts, maxBodyMB int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   50,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		limiters:      make(map[string]*rate.Limiter),
		rateLimit:     rateLimit,
		retryAttempts: retryAttempts,
		maxBodyBytes:  int64(maxBodyMB) * 1024 * 1024,
		userAgent:     defaultUserAgent,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Client) getRateLimiter(host string) *rate.Limiter {
	if c.rateLimit <= 0 {
		return nil
	}

	c.limitersMu.RLock()
	limiter, exists := c.limiters[host]
	c.limitersMu.RUnlock()

	if exists {
		return limiter
	}

	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()

	if limiter, exists := c.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(c.rateLimit), 1)
	c.limiters[host] = limiter
	return limiter
}

func (c *Client) jitter(attempt int) time.Duration {
	ceiling := 10 * time.Second
	base := time.Duration(math.Pow(2, float64(attempt))) * 250 * time.Millisecond
	if base > ceiling {
		base = ceiling
	}
	c.rngMu.Lock()
	d := time.Duration(c.rng.Int63n(int64(base)))
	c.rngMu.Unlock()
	return d
}

// Do performs one request with the retry policy and returns the fully
// read (size-capped) body.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if limiter := c.getRateLimiter(parsed.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.jitter(attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		for key, values := range header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       data,
		}, nil
	}

	return nil, lastErr
}

func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, nil)
}

// PostForm submits urlencoded form data.
func (c *Client) PostForm(ctx context.Context, rawURL string, data url.Values) (*Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(ctx, http.MethodPost, rawURL, header, []byte(data.Encode()))
}

// HTTPClient exposes the underlying client for probes that only need
// headers.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// BodyText is a convenience accessor for testers comparing bodies.
func (r *Response) BodyText() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}
