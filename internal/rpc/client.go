package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fystack/stacks-connector/pkg/ratelimiter"
	"github.com/fystack/stacks-connector/pkg/retry"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type     string            `json:"type"`     // "bearer", "api_key", "basic", "custom"
	Token    string            `json:"token"`    // For bearer/api_key
	Header   string            `json:"header"`   // Header name for api_key, default X-API-Key
	Username string            `json:"username"` // For basic auth
	Password string            `json:"password"` // For basic auth
	Headers  map[string]string `json:"headers"`  // Custom headers
}

const (
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
	AuthBasic  = "basic"
	AuthCustom = "custom"

	defaultAPIKeyHeader = "X-API-Key"
)

// ClientConfig controls timeouts and retries of a BaseClient.
type ClientConfig struct {
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

type NetworkClient interface {
	Do(ctx context.Context, method, endpoint string, body any, params map[string]string) ([]byte, error)
	DoRaw(ctx context.Context, method, endpoint, contentType string, body []byte, params map[string]string) ([]byte, error)
	GetNetworkType() string
	GetURL() string
	Close() error
}

// BaseClient is a REST client bound to one base URL. It is safe for
// concurrent use.
type BaseClient struct {
	httpClient  *http.Client
	baseURL     string
	host        string
	auth        *AuthConfig
	network     string
	config      ClientConfig
	rateLimiter *ratelimiter.PooledRateLimiter
}

func NewBaseClient(baseURL, network string, auth *AuthConfig, cfg ClientConfig, rl *ratelimiter.PooledRateLimiter) *BaseClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &BaseClient{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:     baseURL,
		host:        host,
		auth:        auth,
		network:     network,
		config:      cfg,
		rateLimiter: rl,
	}
}

// Do sends body as JSON when it is non-nil.
func (c *BaseClient) Do(ctx context.Context, method, endpoint string, body any, params map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = b
	}
	return c.DoRaw(ctx, method, endpoint, ContentTypeJSON, payload, params)
}

// DoRaw sends body verbatim with the given content type. Rate limited
// and retried on 429, 5xx and transport errors.
func (c *BaseClient) DoRaw(ctx context.Context, method, endpoint, contentType string, body []byte, params map[string]string) ([]byte, error) {
	fullURL := c.buildURL(endpoint, params)

	if c.config.MaxRetries <= 0 {
		return c.attempt(ctx, method, fullURL, contentType, body)
	}

	var out []byte
	err := retry.Exponential(ctx, func() error {
		data, err := c.attempt(ctx, method, fullURL, contentType, body)
		if err != nil {
			if !retryable(ctx, err) {
				return retry.Permanent(err)
			}
			return err
		}
		out = data
		return nil
	}, retry.ExponentialConfig{
		InitialInterval: c.retryDelay(),
		MaxRetries:      uint64(c.config.MaxRetries),
		OnRetry: func(err error, next time.Duration) {
			slog.Warn("Retrying request", "url", fullURL, "err", err, "next", next)
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BaseClient) attempt(ctx context.Context, method, fullURL, contentType string, body []byte) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, c.host); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", ContentTypeJSON)
	c.setAuthHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	slog.Debug("HTTP request completed", "url", fullURL, "status", resp.StatusCode, "elapsed", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, fullURL, resp.Header, data)
		if apiErr.RetryAfter > 0 && c.rateLimiter != nil {
			c.rateLimiter.Pause(c.host, apiErr.RetryAfter)
		}
		return nil, apiErr
	}
	return data, nil
}

func (c *BaseClient) buildURL(endpoint string, params map[string]string) string {
	u := c.baseURL + endpoint
	if len(params) == 0 {
		return u
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return u + sep + q.Encode()
}

func (c *BaseClient) retryDelay() time.Duration {
	if c.config.RetryDelay > 0 {
		return c.config.RetryDelay
	}
	return retry.DefaultInterval
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *BaseClient) setAuthHeaders(req *http.Request) {
	if c.auth == nil {
		return
	}
	switch c.auth.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	case AuthAPIKey:
		header := c.auth.Header
		if header == "" {
			header = defaultAPIKeyHeader
		}
		req.Header.Set(header, c.auth.Token)
	case AuthBasic:
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	case AuthCustom:
		for k, v := range c.auth.Headers {
			req.Header.Set(k, v)
		}
	}
}

func (c *BaseClient) GetNetworkType() string { return c.network }
func (c *BaseClient) GetURL() string         { return c.baseURL }
func (c *BaseClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
