package provider

import (
	"fmt"
	"net/http"
	"time"
)

// TransportError is a failure to get any HTTP response: DNS, connection,
// timeout, or a call rejected by the open circuit breaker.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a response with a non-success status code.
type ProviderError struct {
	Provider   string
	StatusCode int
	// Body is the (truncated) response body or API error message.
	Body string
	// RetryAfter is the delay the server asked for, if any.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: API returned status %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether retrying the same request may succeed.
func (e *ProviderError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// DecodeError is a success response whose body cannot be interpreted:
// empty, not JSON, without a translated text, or split into the wrong
// number of segments.
type DecodeError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
