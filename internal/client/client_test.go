// ABOUTME: Tests for the resilient client: header injection, retry on
// ABOUTME: transient failures, and immediate return on permanent ones.

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalci/orbital-mcp/internal/auth"
)

// fastClient builds a client with tight retry bounds for tests.
func fastClient(baseURL string, provider auth.Provider) *Client {
	return New(Config{
		BaseURL:          baseURL,
		AuthProvider:     provider,
		Timeout:          2 * time.Second,
		RetryMaxInterval: 20 * time.Millisecond,
		RetryMaxElapsed:  2 * time.Second,
	})
}

func TestHeaderInjection(t *testing.T) {
	var gotKey atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("x-api-key"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := fastClient(server.URL, auth.NewAPIKeyProvider("pat.acc123.tok456.sig"))
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/api/ping"})
	require.NoError(t, err)
	assert.Equal(t, "pat.acc123.tok456.sig", gotKey.Load())
}

func TestInvalidCredentialNeverReachesBackend(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := fastClient(server.URL, auth.NewAPIKeyProvider("not-a-key"))
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/api/ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRetryTransient(t *testing.T) {
	t.Run("503 twice then success yields exactly 3 attempts", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		c := fastClient(server.URL, nil)
		resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/api/pipelines"})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Attempts)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("429 is transient", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := fastClient(server.URL, nil)
		resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Attempts)
	})

	t.Run("400 is permanent: exactly 1 attempt", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`bad input`))
		}))
		defer server.Close()

		c := fastClient(server.URL, nil)
		_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
		require.Error(t, err)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadRequest, statusErr.Status)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("mutating calls are not retried by default", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := fastClient(server.URL, nil)
		_, err := c.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/x", Body: map[string]string{"a": "b"}})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("idempotent-marked mutating calls are retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := fastClient(server.URL, nil)
		resp, err := c.Do(context.Background(), &Request{Method: http.MethodPut, Path: "/x", Idempotent: true})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Attempts)
	})
}

func TestRetryBoundedByElapsedTime(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:          server.URL,
		Timeout:          time.Second,
		RetryMaxInterval: 10 * time.Millisecond,
		RetryMaxElapsed:  100 * time.Millisecond,
	})

	start := time.Now()
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestRetryHonorsContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:          server.URL,
		Timeout:          time.Second,
		RetryMaxInterval: time.Second,
		RetryMaxElapsed:  time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "cancel must interrupt backoff sleeps")
}

func TestGetDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pipelines/p1", r.URL.Path)
		w.Write([]byte(`{"id":"p1","name":"deploy"}`))
	}))
	defer server.Close()

	c := fastClient(server.URL, nil)
	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, c.Get(context.Background(), "/api/pipelines/p1", nil, &out))
	assert.Equal(t, "deploy", out.Name)
}

func TestClassify(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.True(t, isTransient(&StatusError{Status: 503}))
	assert.True(t, isTransient(&StatusError{Status: 500}))
	assert.True(t, isTransient(&StatusError{Status: 429}))
	assert.False(t, isTransient(&StatusError{Status: 404}))
	assert.False(t, isTransient(&StatusError{Status: 401}))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(errors.New("some app error")))
}
