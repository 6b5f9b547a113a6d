package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

func TestDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "casebook-cli/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("PAGE 4\nSmith v. Jones\n")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})

	body, err := f.Download(context.Background(), srv.URL+"/pages/dump.txt")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "PAGE 4\nSmith v. Jones\n", string(data))
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Retry: resilience.RetryConfig{InitialBackoff: time.Millisecond},
	})

	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Retry: resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	})

	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDownload_RateLimited429(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Retry: resilience.RetryConfig{InitialBackoff: time.Millisecond},
	})

	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDownload_Non200(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Retry: resilience.RetryConfig{InitialBackoff: time.Millisecond},
	})

	_, err := f.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	// Client errors other than 429 are permanent.
	assert.Equal(t, int32(1), attempts.Load())
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("workbook bytes")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})

	dir := t.TempDir()
	destPath := filepath.Join(dir, "cases.xlsx")

	n, err := f.DownloadToFile(context.Background(), srv.URL+"/cases.xlsx", destPath)
	require.NoError(t, err)
	assert.Equal(t, int64(14), n)

	data, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "workbook bytes", string(data))
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "casebook-cli/1.0", f.opts.UserAgent)
	assert.Equal(t, 60*time.Second, f.opts.Timeout)
	assert.Equal(t, float64(5), f.opts.RequestsPerSecond)
	assert.Equal(t, 5, f.opts.Burst)
}

func TestDownload_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewHTTPFetcher(HTTPOptions{})

	_, err := f.Download(ctx, srv.URL)
	require.Error(t, err)
}

func TestDownload_InvalidURL(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})

	_, err := f.Download(context.Background(), "://bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create request")
}

func TestRateLimiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{RequestsPerSecond: 50, Burst: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		body, err := f.Download(context.Background(), srv.URL)
		require.NoError(t, err)
		_, err = io.Copy(io.Discard, body)
		require.NoError(t, err)
		require.NoError(t, body.Close())
	}
	elapsed := time.Since(start)

	// Burst 1 at 50 rps spaces the second and third requests 20ms apart.
	assert.GreaterOrEqual(t, elapsed, 35*time.Millisecond)
}

func TestRetryAfterHint(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "numeric seconds", header: "7", want: 7 * time.Second},
		{name: "zero", header: "0", want: 0},
		{name: "missing", header: "", want: 0},
		{name: "negative", header: "-3", want: 0},
		{name: "http date ignored", header: "Fri, 22 Aug 2026 10:00:00 GMT", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, retryAfterHint(resp))
		})
	}
}
