package fetch

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Retry             resilience.RetryConfig
}

// HTTPFetcher downloads documents over HTTP(S) behind a politeness
// limiter. Rate-limit responses honor the server's Retry-After hint and
// transient server errors retry with backoff.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    HTTPOptions
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "casebook-cli/1.0"
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("fetch", "download")
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		opts:    opts,
	}
}

// Download fetches the URL and returns the response body. The caller
// must close it.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (*http.Response, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: limiter wait")
		}
		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			hint := retryAfterHint(resp)
			_ = resp.Body.Close()
			return nil, resilience.NewRateLimitError(eris.Errorf("fetch: 429 from %s", rawURL), hint)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(eris.Errorf("fetch: status %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("fetch: unexpected status %d from %s", resp.StatusCode, rawURL)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into path. The file appears only once
// complete. Returns bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return placeFile(path, body)
}

// retryAfterHint parses a numeric Retry-After header. HTTP-date forms
// are ignored.
func retryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
