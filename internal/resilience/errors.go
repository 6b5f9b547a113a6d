// Package resilience classifies failures from external services and
// retries the ones worth retrying: rate-limit signals and transient
// transport errors each follow their own track, and a generic
// backoff-with-jitter retry serves the auxiliary network paths.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
	"time"
)

// The extraction pipeline distinguishes two retryable failure tracks:
// rate-limit signals (always retried, honoring the service's wait hint,
// never counted against the transport-error cap) and transient transport
// errors (retried with a fixed delay up to a cap). RateLimitError and
// TransientError mark which track an error belongs to.

// RateLimitError signals the service asked us to slow down. RetryAfter is
// the service-provided wait hint, zero when the service gave none.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps an error as a rate-limit signal with an optional
// wait hint.
func NewRateLimitError(err error, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Err: err, RetryAfter: retryAfter}
}

// AsRateLimit reports whether the error is a rate-limit signal and returns
// the wait hint (zero when none was provided). Falls back to string
// heuristics for clients that do not surface typed errors.
func AsRateLimit(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}

	// Bare "429" is not matched; it shows up in URLs and ports.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"rate limit", "rate_limit", "too many requests", "overloaded"} {
		if strings.Contains(msg, p) {
			return 0, true
		}
	}
	return 0, false
}

// TransientError wraps an error that is safe to retry (5xx, network
// timeout), with an optional HTTP status code.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP
// status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures). Rate-limit signals are not
// transient; they follow their own retry track.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := AsRateLimit(err); ok {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true for server-side statuses that are safe
// to retry on the transport track. 429 is not listed here; it is a
// rate-limit signal handled on its own retry track.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
