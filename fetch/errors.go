package fetch

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes a fetch failure.
type ErrorType string

const (
	// ErrorTypeConnection covers transport failures and non-success
	// statuses other than 401 and 429.
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeAuth is an authentication rejection (HTTP 401). Never
	// retried; the same credential cannot succeed on a later attempt.
	ErrorTypeAuth ErrorType = "authentication"
	// ErrorTypeRateLimit is a server-side rate limit (HTTP 429) that
	// survived all retries.
	ErrorTypeRateLimit ErrorType = "rate_limit"
)

// Error is a typed fetch failure. StatusCode and Body are populated for
// HTTP-level rejections; RetryAfter carries the server's wait hint for
// rate limits; Err wraps any underlying transport error.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Body       string
	RetryAfter *time.Duration
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError unwraps err into a *Error if one is in its chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsAuthError reports whether err is an authentication rejection.
func IsAuthError(err error) bool {
	fe, ok := AsError(err)
	return ok && fe.Type == ErrorTypeAuth
}

// IsRateLimited reports whether err is an exhausted rate limit.
func IsRateLimited(err error) bool {
	fe, ok := AsError(err)
	return ok && fe.Type == ErrorTypeRateLimit
}

// IsConnectionError reports whether err is a connection failure.
func IsConnectionError(err error) bool {
	fe, ok := AsError(err)
	return ok && fe.Type == ErrorTypeConnection
}

// RetryAfterHint returns the server-supplied wait duration from a rate
// limit error, if present.
func RetryAfterHint(err error) *time.Duration {
	fe, ok := AsError(err)
	if !ok {
		return nil
	}
	return fe.RetryAfter
}
