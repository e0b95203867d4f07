// Package fault defines the closed set of error kinds the service
// distinguishes when talking to external providers. Callers branch on
// [Kind] rather than inspecting provider-specific error shapes, so retry
// and HTTP-mapping decisions stay in one place.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation marks malformed or missing caller input. Never retried.
	Validation Kind = iota

	// RateLimited marks provider backpressure (a 429-equivalent). The only
	// kind the retrier treats as transient.
	RateLimited

	// Provider marks any other provider-side failure (outage, auth,
	// malformed request). Never retried.
	Provider

	// Structural marks a provider response that arrived but failed the
	// expected-shape check. Never retried and kept distinct from Provider so
	// callers can tell "answered wrong" from "failed to answer".
	Structural

	// Delivery marks a mail relay rejection.
	Delivery
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case RateLimited:
		return "rate_limited"
	case Provider:
		return "provider"
	case Structural:
		return "structural"
	case Delivery:
		return "delivery"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a fault with no underlying cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err if it is (or wraps) a fault, and whether
// it was found.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
