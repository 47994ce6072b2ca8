package commerce

import (
	"errors"
	"fmt"
)

// The client distinguishes three recoverable failure classes so callers can
// decide how to degrade:
//
//   - TransportError: the request never produced an HTTP response.
//   - APIError: the backend answered with a non-2xx status.
//   - MalformedResponseError: the backend answered 2xx but the body could not
//     be decoded into the expected shape.
//
// All three unwrap cleanly for errors.As, and none of them is terminal for
// the checkout pipeline.

// TransportError wraps a network-level failure: DNS, connect, TLS, timeout.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("commerce %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer from the commerce backend. Body holds the raw
// response payload for diagnostics; it is never parsed for control flow.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce %s: backend returned %d: %s", e.Op, e.Status, e.Body)
}

// MalformedResponseError is a 2xx answer whose body did not decode into the
// expected shape, or decoded without the fields the caller needs.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("commerce %s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejection reports whether err is a non-2xx backend answer. When it is,
// the status code is returned alongside.
func IsRejection(err error) (int, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status, true
	}
	return 0, false
}

// IsMalformed reports whether err is an undecodable backend answer.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
