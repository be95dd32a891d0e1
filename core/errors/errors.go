// Package errors defines the failure taxonomy shared by the ledger engines.
// Module sentinels are tagged with one of the kinds below so callers can
// branch on the category while tests still match the precise sentinel.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrAuthorization marks a caller lacking the role or whitelist entry
	// required for the operation.
	ErrAuthorization = stderrors.New("authorization error")
	// ErrInvariant marks a request that would break a ledger invariant such
	// as collateralization, stake bounds or redemption ceilings.
	ErrInvariant = stderrors.New("invariant violation")
	// ErrConfiguration marks invalid wiring or parameters.
	ErrConfiguration = stderrors.New("configuration error")
	// ErrArithmetic marks an underflow against insufficient backing.
	ErrArithmetic = stderrors.New("arithmetic error")
)

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() []error { return []error{e.err, e.kind} }

// Tag returns err annotated with kind. errors.Is matches both.
func Tag(kind error, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// New creates a sentinel of the given kind.
func New(kind error, msg string) error {
	return Tag(kind, stderrors.New(msg))
}

// Wrapf adds context to a tagged error while keeping its kind.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Kind reports the taxonomy kind of err, or nil when untagged.
func Kind(err error) error {
	for _, kind := range []error{ErrAuthorization, ErrInvariant, ErrConfiguration, ErrArithmetic} {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName returns a short label for metrics and logs.
func KindName(err error) string {
	switch Kind(err) {
	case ErrAuthorization:
		return "authorization"
	case ErrInvariant:
		return "invariant"
	case ErrConfiguration:
		return "configuration"
	case ErrArithmetic:
		return "arithmetic"
	default:
		if err == nil {
			return "none"
		}
		return "internal"
	}
}
