package dataflows

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an empty result set after every parser strategy was
// exhausted. Callers treat it as "no data", not as a transport failure.
var ErrNotFound = errors.New("not found")

// FetchErrorKind classifies a fetch failure.
type FetchErrorKind string

const (
	// KindTransient covers connection-level failures and retryable HTTP
	// statuses once the retry budget is spent.
	KindTransient FetchErrorKind = "transient"
	// KindMalformedPayload covers structural parse failures. Never retried.
	KindMalformedPayload FetchErrorKind = "malformed_payload"
)

// FetchError is the typed failure surfaced by the fetch layer.
type FetchError struct {
	Kind     FetchErrorKind
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Endpoint, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Endpoint, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

func transientErr(endpoint string, err error) *FetchError {
	return &FetchError{Kind: KindTransient, Endpoint: endpoint, Err: err}
}

func malformedErr(endpoint string, format string, args ...any) *FetchError {
	return &FetchError{Kind: KindMalformedPayload, Endpoint: endpoint, Err: fmt.Errorf(format, args...)}
}

// IsMalformed reports whether err is a structural parse failure.
func IsMalformed(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindMalformedPayload
}

// IsTransient reports whether err is a transport-level failure.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindTransient
}
