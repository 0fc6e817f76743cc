package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/heyharoon/vpo/pkg/cache"
	"github.com/heyharoon/vpo/pkg/observability"
)

// DefaultTimeout bounds a single frame request.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps a frame body; larger responses are treated as errors.
const maxBodySize = 32 << 20

// NewHTTPClient returns an http.Client with the given timeout and no cookie
// jar, so requests never carry credentials.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Client fetches raw bytes, consulting a cache first.
type Client struct {
	http  *http.Client
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration

	// Attempts and Delay configure retries of transient failures.
	// Attempts <= 1 disables retry.
	Attempts int
	Delay    time.Duration
}

// NewClient creates a Client. A nil cache disables caching and a nil keyer
// uses cache.DefaultKeyer.
func NewClient(c cache.Cache, keyer cache.Keyer, timeout time.Duration) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Client{
		http:  NewHTTPClient(timeout),
		cache: c,
		keyer: keyer,
		ttl:   cache.TTLFrame,
		Delay: 500 * time.Millisecond,
	}
}

// WithTTL sets how long fetched bodies stay cached.
func (c *Client) WithTTL(ttl time.Duration) *Client {
	c.ttl = ttl
	return c
}

// Fetch returns the body of rawURL, from cache when possible.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := c.keyer.FrameKey(rawURL)
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, "frame")
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, "frame")

	var body []byte
	err := Retry(ctx, c.Attempts, c.Delay, func() error {
		var err error
		body, err = c.doRequest(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, body, c.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "frame", len(body))
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	host, path := splitURL(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrNetwork, maxBodySize)
	}
	return data, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func splitURL(u *url.URL) (host, path string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.Path
}
