package uomesdk

import (
	"errors"
	"fmt"
)

// TransportError wraps network and HTTP-plumbing failures so callers can tell
// "could not reach the authority" apart from protocol-level rejections.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from an authority, carrying the error code
// and description from the response body.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.StatusCode)
}

// ErrChainBroken means a signature in the join chain failed verification.
// The member must not proceed with the join.
var ErrChainBroken = errors.New("uomesdk: signature chain verification failed")

// ErrEntryTampered means a pending entry's stored issuer signature did not
// verify against its own terms.
var ErrEntryTampered = errors.New("uomesdk: pending entry failed issuer signature verification")
