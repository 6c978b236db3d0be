package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/reports/r%201", r.URL.EscapedPath())
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r 1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, c.Get(context.Background(), Path("reports", "r 1"), &out))
	assert.Equal(t, "r 1", out.ID)
}

func TestErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"conflict","message":"report already exists for date"}}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "").Post(context.Background(), "reports", map[string]any{}, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "conflict", apiErr.Code)
	assert.Equal(t, "report already exists for date", apiErr.Message)
}

func TestErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, "").Delete(context.Background(), "reports/x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestWithQuery(t *testing.T) {
	assert.Equal(t, "units", WithQuery("units", map[string]string{"level": ""}))
	assert.Equal(t, "units?level=zone", WithQuery("units", map[string]string{"level": "zone"}))
}

func TestNewIsReadyForConcurrentUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, DefaultTimeout, c.HTTPClient.Timeout)
	c.SetTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, c.HTTPClient.Timeout)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out struct{ ID string }
			assert.NoError(t, c.Get(context.Background(), "reports/x", &out))
			assert.Equal(t, "x", out.ID)
		}()
	}
	wg.Wait()
}
