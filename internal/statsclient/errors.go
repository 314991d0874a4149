package statsclient

import (
	"errors"
	"fmt"
)

// Kind classifies a FetchError.
type Kind string

const (
	// KindAuthFailure: the auth endpoint rejected the operator credentials
	// or returned an unusable token payload.
	KindAuthFailure Kind = "auth_failure"
	// KindTokenExpired: the statistics endpoint rejected the token, and the
	// single re-authentication retry did not help.
	KindTokenExpired Kind = "token_expired"
	// KindTransportFailure: endpoint unreachable or a non-2xx, non-401 response.
	KindTransportFailure Kind = "transport_failure"
	// KindDecodeFailure: the body is not the expected JSON shape.
	KindDecodeFailure Kind = "decode_failure"
)

// Sentinels for errors.Is. A *FetchError matches the sentinel of its Kind.
var (
	ErrAuthFailure      = errors.New("auth failure")
	ErrTokenExpired     = errors.New("token expired")
	ErrTransportFailure = errors.New("transport failure")
	ErrDecodeFailure    = errors.New("decode failure")
)

// FetchError is the only error type returned by Client methods.
type FetchError struct {
	Kind    Kind
	Status  int // HTTP status when a response was received, else 0
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrAuthFailure:
		return e.Kind == KindAuthFailure
	case ErrTokenExpired:
		return e.Kind == KindTokenExpired
	case ErrTransportFailure:
		return e.Kind == KindTransportFailure
	case ErrDecodeFailure:
		return e.Kind == KindDecodeFailure
	}
	return false
}

func newError(kind Kind, status int, err error, format string, args ...interface{}) *FetchError {
	return &FetchError{
		Kind:    kind,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
