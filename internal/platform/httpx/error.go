package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/VASILIYKAS/seller-apis/internal/platform/observability"
)

// Failure classes reported by TransportError.
const (
	KindTimeout    = "timeout"
	KindConnection = "connection"
)

// StatusError is returned when the remote API answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("httpx: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// TransportError wraps failures that happened before a response was received.
type TransportError struct {
	Op   string
	URL  string
	Kind string
	Err  error
}

func newTransportError(op, rawURL string, err error) *TransportError {
	return &TransportError{Op: op, URL: rawURL, Kind: classify(err), Err: err}
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("httpx: %s %s: %s error: %v", e.Op, e.URL, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Timeout reports whether the failure was a deadline or read timeout.
func (e *TransportError) Timeout() bool {
	return e != nil && e.Kind == KindTimeout
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnection
}

// IsTimeout reports whether err carries a TransportError classified as a timeout.
func IsTimeout(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr) && transportErr.Timeout()
}

// IsConnection reports whether err carries a TransportError classified as a connection failure.
func IsConnection(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr) && transportErr.Kind == KindConnection
}

// errorBody flattens an error response body onto one line for logs and error messages.
func errorBody(body []byte) string {
	return observability.SanitizeBody(strings.Join(strings.Fields(string(body)), " "))
}
