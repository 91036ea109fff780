package airquality

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/air-quality-cli/internal/fetcher"
	"github.com/sells-group/air-quality-cli/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc, apiKey string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     2 * time.Second,
		MaxRetries:  1,
		BackoffBase: time.Millisecond,
	})
	return NewClient(f, ClientOptions{BaseURL: srv.URL, APIKey: apiKey, Timeout: time.Second})
}

func TestLatestPM25_Mean(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "40.7128,-74.006", q.Get("coordinates"))
		assert.Equal(t, "25000", q.Get("radius"))
		assert.Equal(t, "pm25", q.Get("parameter"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "secret", q.Get("api_key"))
		_, _ = w.Write([]byte(`{"results":[{"measurements":[{"value":8}]},{"measurements":[{"value":12},{"value":10}]}]}`))
	}, "secret")

	v := c.LatestPM25(context.Background(), 40.7128, -74.0060)
	require.True(t, v.Valid)
	assert.InDelta(t, 10.0, v.Value, 1e-9)
}

func TestLatestPM25_NoKeyParam(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["api_key"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"results":[{"measurements":[{"value":5.5}]}]}`))
	}, "")

	v := c.LatestPM25(context.Background(), 1, 2)
	require.True(t, v.Valid)
	assert.Equal(t, 5.5, v.Value)
}

func TestLatestPM25_Missing(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"empty results", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		}},
		{"no measurements", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"measurements":[]}]}`))
		}},
		{"null value", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"measurements":[{"value":null}]}]}`))
		}},
		{"non-numeric value", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"measurements":[{"value":"high"}]}]}`))
		}},
		{"malformed json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"results":`))
		}},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.h, "")
			v := c.LatestPM25(context.Background(), 1, 2)
			assert.False(t, v.Valid)
		})
	}
}

func TestLatestPM25_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}, "")
	c.opts.Timeout = 50 * time.Millisecond

	v := c.LatestPM25(context.Background(), 1, 2)
	assert.False(t, v.Valid)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil, ClientOptions{})
	assert.Equal(t, DefaultBaseURL, c.opts.BaseURL)
	assert.Equal(t, 25.0, c.opts.RadiusKM)
	assert.Equal(t, 100, c.opts.Limit)
	assert.Equal(t, 20*time.Second, c.opts.Timeout)
}

func TestLatestPM25_BreakerStopsCalls(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}, "")
	c.opts.Breaker = resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, Clock: clockwork.NewFakeClock()})

	for range 5 {
		assert.False(t, c.LatestPM25(context.Background(), 1, 2).Valid)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, resilience.StateOpen, c.opts.Breaker.State())
}

func TestLatestPM25_NoDataDoesNotTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}, "")
	c.opts.Breaker = resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 1, Clock: clockwork.NewFakeClock()})

	for range 3 {
		assert.False(t, c.LatestPM25(context.Background(), 1, 2).Valid)
	}
	assert.Equal(t, resilience.StateClosed, c.opts.Breaker.State())
}
