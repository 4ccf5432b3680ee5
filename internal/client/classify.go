// ABOUTME: Outcome classification for outbound calls: transient failures
// ABOUTME: are retried, permanent ones return after a single attempt.

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is returned for non-2xx backend responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// isTransient reports whether an outcome is worth retrying: timeouts,
// connection failures, rate limiting, and server-side errors. Everything
// else, including auth failures and other 4xx statuses, is permanent.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status == http.StatusTooManyRequests {
			return true
		}
		return statusErr.Status >= 500
	}

	// Per-request deadline expiry is a timeout, not a caller cancel.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// url.Error and friends wrap connection refusals and DNS failures.
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
