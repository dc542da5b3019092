package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// RetryableError reports a request that kept failing with a status the
// client retries (429 or 5xx). RetryAfter carries the server's backoff
// hint when the final response included one, so callers can surface it.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) IsRetryable() bool {
	return true
}

// AsRetryable reports whether err, anywhere in its chain, is a
// RetryableError.
func AsRetryable(err error) (*RetryableError, bool) {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return retryErr, true
	}
	return nil, false
}
