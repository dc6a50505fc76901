package rpc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/stacks-connector/pkg/ratelimiter"
)

func fastConfig(retries int) ClientConfig {
	return ClientConfig{RequestTimeout: 5 * time.Second, MaxRetries: retries, RetryDelay: time.Millisecond}
}

func TestBaseClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended/v1/address/SP1/transactions", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total":0,"results":[]}`))
	}))
	defer server.Close()

	client := NewBaseClient(server.URL+"/", NetworkStacks, nil, fastConfig(0), nil)
	data, err := client.Do(context.Background(), http.MethodGet, "/extended/v1/address/SP1/transactions", nil, map[string]string{
		"limit":  "20",
		"offset": "0",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0,"results":[]}`, string(data))
	assert.Equal(t, server.URL, client.GetURL())
	assert.Equal(t, NetworkStacks, client.GetNetworkType())
}

func TestBaseClient_ParamsAppendToExistingQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SP1", r.URL.Query().Get("principal"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(0), nil)
	_, err := client.Do(context.Background(), http.MethodGet, "/extended/v1/tokens/nft/holdings?principal=SP1", nil, map[string]string{"limit": "50"})
	require.NoError(t, err)
}

func TestBaseClient_JSONAndRawBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/json":
			assert.Equal(t, ContentTypeJSON, r.Header.Get("Content-Type"))
			assert.JSONEq(t, `{"sender":"SP1","arguments":["0x09"]}`, string(body))
		case "/raw":
			assert.Equal(t, ContentTypeOctetStream, r.Header.Get("Content-Type"))
			assert.Equal(t, []byte{0xde, 0xad}, body)
		}
		_, _ = w.Write([]byte(`"ok"`))
	}))
	defer server.Close()

	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(0), nil)
	_, err := client.Do(context.Background(), http.MethodPost, "/json", map[string]any{
		"sender":    "SP1",
		"arguments": []string{"0x09"},
	}, nil)
	require.NoError(t, err)

	_, err = client.DoRaw(context.Background(), http.MethodPost, "/raw", ContentTypeOctetStream, []byte{0xde, 0xad}, nil)
	require.NoError(t, err)
}

func TestBaseClient_AuthHeaders(t *testing.T) {
	tests := []struct {
		name  string
		auth  *AuthConfig
		check func(t *testing.T, r *http.Request)
	}{
		{
			name: "hiro api key",
			auth: &AuthConfig{Type: AuthAPIKey, Header: "x-hiro-api-key", Token: "secret"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "secret", r.Header.Get("x-hiro-api-key"))
			},
		},
		{
			name: "default api key header",
			auth: &AuthConfig{Type: AuthAPIKey, Token: "secret"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			},
		},
		{
			name: "bearer",
			auth: &AuthConfig{Type: AuthBearer, Token: "tok"},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			},
		},
		{
			name: "basic",
			auth: &AuthConfig{Type: AuthBasic, Username: "u", Password: "p"},
			check: func(t *testing.T, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "u", user)
				assert.Equal(t, "p", pass)
			},
		},
		{
			name: "custom",
			auth: &AuthConfig{Type: AuthCustom, Headers: map[string]string{"X-Custom": "v"}},
			check: func(t *testing.T, r *http.Request) {
				assert.Equal(t, "v", r.Header.Get("X-Custom"))
			},
		},
		{
			name: "none",
			auth: nil,
			check: func(t *testing.T, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.check(t, r)
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			client := NewBaseClient(server.URL, NetworkStacks, tt.auth, fastConfig(0), nil)
			_, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
			require.NoError(t, err)
		})
	}
}

func TestBaseClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusNotFound, `{"error":"cannot find transaction"}`, "Stacks API Error (404): cannot find transaction"},
		{"message field", http.StatusBadRequest, `{"message":"bad principal"}`, "Stacks API Error (400): bad principal"},
		{"raw body", http.StatusBadRequest, `plain failure`, "Stacks API Error (400): plain failure"},
		{"empty body", http.StatusForbidden, ``, "Stacks API Error (403): Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(3), nil)
			_, err := client.Do(context.Background(), http.MethodGet, "/x", nil, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestBaseClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(3), nil)
	data, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBaseClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(3), nil)
	_, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBaseClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(2), nil)
	_, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBaseClient_UsesRateLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rl := ratelimiter.NewPooledRateLimiter(1000, 5)
	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(0), rl)
	_, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)
	require.NoError(t, err)

	stats := rl.GetStats()
	require.Len(t, stats, 1)
	for host := range stats {
		assert.NotContains(t, host, "http://")
	}
}

func TestBaseClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(3), nil)
	_, err := client.Do(ctx, http.MethodGet, "/", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBaseClient_RetryAfterPausesHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	rl := ratelimiter.NewPooledRateLimiter(1000, 5)
	client := NewBaseClient(server.URL, NetworkStacks, nil, fastConfig(0), rl)
	_, err := client.Do(context.Background(), http.MethodGet, "/", nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 30*time.Second, apiErr.RetryAfter)
	assert.True(t, apiErr.Retryable())

	for _, s := range rl.GetStats() {
		assert.Greater(t, s.PausedFor, 25*time.Second)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{now.Add(time.Minute).Format(http.TimeFormat), time.Minute},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		assert.Equal(t, tt.want, retryAfter(h, now), tt.value)
	}
}
