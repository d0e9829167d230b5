package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acme ltd chelmsford CM1 1AA site:endole.co.uk", req["q"])
		assert.Equal(t, "gb", req["gl"])

		w.Write([]byte(`{"organic":[{"title":"Acme Ltd - Endole","link":"https://www.endole.co.uk/company/01234567","snippet":"Acme Ltd is..."}]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	results, err := c.Search(context.Background(), "acme ltd chelmsford CM1 1AA site:endole.co.uk")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.endole.co.uk/company/01234567", results[0].Link)
}

func TestSearch_RetriesTransient(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"organic":[]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	results, err := c.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 3, calls)
}

func TestSearch_BadKeyFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("wrong", WithBaseURL(srv.URL), WithRetryConfig(fastRetry()))
	_, err := c.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
