package models

import (
	"context"
	"errors"
)

var (
	// ErrSourceUnavailable marks transport, auth and non-success status failures
	// of a remote source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedResponse marks a response whose shape did not match the
	// expected schema.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidConcurrency is returned when an expansion is requested with a
	// concurrency cap below 1.
	ErrInvalidConcurrency = errors.New("concurrency cap must be at least 1")
)

// ErrorType classifies err for logs, manifests and the url_accesses table.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	default:
		return "fetch_error"
	}
}
