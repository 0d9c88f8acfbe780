package adapter_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/adapter"
)

// TestHTTPClient_Do tests that requests carry headers and bodies and that responses are fully read
func TestHTTPClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"name":"UFC 1"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer server.Close()

	client := adapter.NewHTTPClient(adapter.HTTPClientConfig{
		Timeout:   5 * time.Second,
		MaxConns:  2,
		UserAgent: "test-agent",
	})

	resp, err := client.Do(context.Background(), adapter.Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Header: http.Header{"apikey": []string{"secret"}},
		Body:   []byte(`{"name":"UFC 1"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `[{"id":1}]`, string(resp.Body))
}

// TestHTTPClient_Do_NonSuccessStatus tests that a non-2xx status is returned without an error
func TestHTTPClient_Do_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := adapter.NewHTTPClient(adapter.HTTPClientConfig{Timeout: 5 * time.Second})

	resp, err := client.Do(context.Background(), adapter.Request{Method: http.MethodGet, URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// TestHTTPClient_Do_Timeout tests that the client timeout surfaces as an error
func TestHTTPClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := adapter.NewHTTPClient(adapter.HTTPClientConfig{Timeout: 50 * time.Millisecond})

	_, err := client.Do(context.Background(), adapter.Request{Method: http.MethodGet, URL: server.URL})
	assert.Error(t, err)
}

// TestClock_SleepContext tests that sleeping stops when the context is cancelled
func TestClock_SleepContext(t *testing.T) {
	clock := adapter.NewClock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.SleepContext(ctx, time.Hour), context.Canceled)

	assert.NoError(t, clock.SleepContext(context.Background(), time.Millisecond))
}
