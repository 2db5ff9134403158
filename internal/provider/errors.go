package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrSendRejected means the provider answered with a non-2xx status.
	ErrSendRejected = errors.New("provider rejected message")
	// ErrTransport means no HTTP response was received.
	ErrTransport = errors.New("provider transport failure")
)

// SendError carries the outcome of a failed provider call. StatusCode is zero
// for transport failures.
type SendError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *SendError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	if e.StatusCode > 0 {
		parts = append(parts, ErrSendRejected.Error(), fmt.Sprintf("status %d", e.StatusCode))
		if body := strings.TrimSpace(e.Body); body != "" {
			parts = append(parts, body)
		}
	} else {
		parts = append(parts, ErrTransport.Error())
		if e.Cause != nil {
			parts = append(parts, e.Cause.Error())
		}
	}
	return strings.Join(parts, ": ")
}

func (e *SendError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.StatusCode > 0 {
		return []error{ErrSendRejected}
	}
	if e.Cause != nil {
		return []error{ErrTransport, e.Cause}
	}
	return []error{ErrTransport}
}

// IsTransient reports whether a failure is likely to succeed on a later
// attempt. It feeds metrics and logs; it does not drive retries.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		if sendErr.StatusCode > 0 {
			return isTransientHTTPStatus(sendErr.StatusCode)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, ErrTransport)
}

// Reason is a low-cardinality label for a send failure.
func Reason(err error) string {
	var sendErr *SendError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &sendErr) && sendErr.StatusCode > 0:
		if isTransientHTTPStatus(sendErr.StatusCode) {
			return "rejected_transient"
		}
		return "rejected"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return "other"
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
