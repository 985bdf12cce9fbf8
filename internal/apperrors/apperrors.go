// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package apperrors defines the typed error kinds used across Pitwall.
// Services and the store return *Error values; HTTP handlers map kinds
// to status codes in exactly one place. Long-running tasks (watcher,
// telemetry sources, hub) classify and log these errors but never
// propagate them upward.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and logging.
type Kind int

const (
	// Internal is an unexpected programming or runtime fault.
	Internal Kind = iota
	// Validation is a malformed or out-of-range request.
	Validation
	// Unauthorized is a missing or invalid credential.
	Unauthorized
	// Forbidden is a valid credential without the required privilege.
	Forbidden
	// NotFound is a missing entity.
	NotFound
	// Conflict is a uniqueness or concurrent-update violation.
	Conflict
	// Unprocessable is a well-formed request whose field values fail
	// domain validation (form field coercion, select options).
	Unprocessable
	// Storage is an underlying database or filesystem fault.
	Storage
	// External is a fault in an external device or resource
	// (serial port, watched directory).
	External
)

// String returns the kind's name for logging.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Unprocessable:
		return "unprocessable"
	case Storage:
		return "storage"
	case External:
		return "external"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code the API surface uses for this kind.
// Storage, External, and Internal faults are all reported as 500; their
// detail is never exposed to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a client-safe message.
type Error struct {
	Kind Kind
	// Msg is safe to return to API clients for 4xx kinds.
	Msg string
	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new classified error with a client-safe message.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Ef creates a new classified error with a formatted client-safe message.
func Ef(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, attaching a client-safe message.
// Wrapping nil returns nil.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain.
// Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message extracts the client-safe message from an error chain.
// Unclassified errors and 5xx kinds yield a generic message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case Storage, External, Internal:
			return "internal server error"
		default:
			if e.Msg != "" {
				return e.Msg
			}
		}
	}
	return "internal server error"
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
