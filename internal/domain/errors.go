package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure per the data server's error contract.
type Kind string

const (
	// DataUnavailable means no complete dataset exists within the lookback
	// window. Fatal to the request; retries belong to the acquisition loop.
	DataUnavailable Kind = "data_unavailable"

	// InvalidInput means an out-of-domain latitude, longitude, percentage or
	// transparency value. Fatal, caller's fault.
	InvalidInput Kind = "invalid_input"

	// InconsistentEphemeris means an event-ordering invariant was violated
	// after the bounded retry. Fatal; logged as an engine defect rather than
	// silently patched.
	InconsistentEphemeris Kind = "inconsistent_ephemeris"

	// MissingData means one requested hour has no forecast record. The score
	// aggregator may skip the hour and continue.
	MissingData Kind = "missing_data"

	// InsufficientData means too few valid hourly scores to grade. Surfaced
	// as "no available score" rather than propagated as a hard failure.
	InsufficientData Kind = "insufficient_data"
)

// Error carries a failure kind plus enough context to reproduce the failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error of the given kind around an underlying cause.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == k
}
