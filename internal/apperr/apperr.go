// Package apperr defines the error kinds surfaced by review triage operations.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and retry decisions.
type Kind string

const (
	// KindConfiguration is a missing credential or repository identity. Fatal for the whole call.
	KindConfiguration Kind = "configuration"
	// KindNotFound is a comment or thread that does not exist in the addressed pull request.
	KindNotFound Kind = "not_found"
	// KindPermission is a remote write rejected by the host.
	KindPermission Kind = "permission"
	// KindTransient is a network, timeout or rate-limit failure. Eligible for retry.
	KindTransient Kind = "transient"
	// KindInternal is anything else.
	KindInternal Kind = "internal"
)

// Error is a classified error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with the given kind. A nil err yields nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration reports a fatal configuration problem.
func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// NotFound reports a missing comment or thread.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

// Permission wraps a rejected write.
func Permission(op string, err error) error {
	return New(KindPermission, op, err)
}

// Transient wraps a retryable failure.
func Transient(op string, err error) error {
	return New(KindTransient, op, err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTransient reports whether err may be retried.
func IsTransient(err error) bool {
	return Is(err, KindTransient)
}

// IsConfiguration reports whether err must abort the whole call.
func IsConfiguration(err error) bool {
	return Is(err, KindConfiguration)
}
