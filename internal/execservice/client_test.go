package execservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts() []Option {
	return []Option{WithMaxRetries(2), WithBackoffBase(time.Millisecond)}
}

func TestStartSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/execute", r.URL.Path)

		var req startRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5000, req.Port)
		assert.Contains(t, req.Code, "app.run")

		json.NewEncoder(w).Encode(startResponse{ProcessID: "proc-1"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, fastOpts()...)
	id, err := c.Start(context.Background(), "app.run(host='0.0.0.0', port=5000)", 5000)
	require.NoError(t, err)
	assert.Equal(t, "proc-1", id)
}

func TestStartBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(startResponse{Error: "syntax error on line 3"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, fastOpts()...)
	_, err := c.Start(context.Background(), "bad", 5000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error on line 3")
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestStartEmptyBaseURL(t *testing.T) {
	c := NewHTTPClient("")
	_, err := c.Start(context.Background(), "code", 5000)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, c.Stop(context.Background(), 5000), ErrUnavailable)
}

func TestStartRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(startResponse{ProcessID: "proc-2"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, fastOpts()...)
	id, err := c.Start(context.Background(), "code", 5001)
	require.NoError(t, err)
	assert.Equal(t, "proc-2", id)
	assert.Equal(t, 2, calls)
}

func TestStartExhaustedRetriesIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, fastOpts()...)
	_, err := c.Start(context.Background(), "code", 5000)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStartClientErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "malformed request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, fastOpts()...)
	_, err := c.Start(context.Background(), "code", 5000)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls)
}

func TestStartUnreachableHost(t *testing.T) {
	// Reserved TEST-NET-1 address; connection should fail fast with the
	// short client timeout.
	c := NewHTTPClient("http://192.0.2.1:9", WithMaxRetries(1), WithTimeout(50*time.Millisecond))
	_, err := c.Start(context.Background(), "code", 5000)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStopSuccess(t *testing.T) {
	var gotPort int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stop", r.URL.Path)
		var req stopRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPort = req.Port
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, fastOpts()...)
	require.NoError(t, c.Stop(context.Background(), 5005))
	assert.Equal(t, 5005, gotPort)
}
