package client

import (
	"errors"
	"fmt"
)

// ErrorKind represents a classification of sync errors.
type ErrorKind string

const (
	// KindInvalidURL represents a base URL or path segment that failed to parse.
	KindInvalidURL ErrorKind = "invalid_url"

	// KindTransport represents an HTTP call that could not complete.
	KindTransport ErrorKind = "transport"

	// KindInvalidToken represents a token that is not a legal header value.
	KindInvalidToken ErrorKind = "invalid_token"

	// KindRemote represents a non-2xx response from the API.
	KindRemote ErrorKind = "remote"

	// KindDecode represents a 2xx response body that did not match the expected shape.
	KindDecode ErrorKind = "decode"
)

// Error is the single error type surfaced by the sync engine.
type Error struct {
	Kind ErrorKind

	// StatusCode and Body are only set for KindRemote.
	StatusCode int
	Body       string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return fmt.Sprintf("invalid URL: %v", e.Err)
	case KindTransport:
		return fmt.Sprintf("HTTP request failed: %v", e.Err)
	case KindInvalidToken:
		if e.Err != nil {
			return fmt.Sprintf("invalid authorization token: %v", e.Err)
		}
		return "invalid authorization token"
	case KindRemote:
		return fmt.Sprintf("received error from server (status %d): %s", e.StatusCode, e.Body)
	case KindDecode:
		return fmt.Sprintf("unable to decode server response: %v", e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalidURL(err error) *Error {
	return &Error{Kind: KindInvalidURL, Err: err}
}

func transportFailure(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func decodeFailure(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}
