package document

import (
	"errors"
	"strings"
)

// Kind classifies repository failures.
type Kind string

const (
	// KindStorage is an opaque failure from the storage driver.
	KindStorage Kind = "storage"
	// KindNotFound means the requested record does not exist.
	KindNotFound Kind = "not_found"
	// KindInvalidIdentifier means an external identifier did not parse into the native ID format.
	KindInvalidIdentifier Kind = "invalid_identifier"
	// KindUnavailable means the store is failing and calls are rejected without reaching it.
	KindUnavailable Kind = "unavailable"
	// KindConflict means a write repeated a value a unique index already holds.
	KindConflict Kind = "conflict"
	// KindInvalidQuery means storage rejected the filter, update or pipeline as unsupported.
	KindInvalidQuery Kind = "invalid_query"
	// KindInternal is a broken invariant, e.g. an insert whose record cannot be read back.
	KindInternal Kind = "internal"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrStorage           = &Error{Kind: KindStorage}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidIdentifier = &Error{Kind: KindInvalidIdentifier}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidQuery      = &Error{Kind: KindInvalidQuery}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error is the failure type returned by repositories.
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	// Detail describes the entity involved, for diagnostics.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Collection != "" {
		b.WriteString(e.Collection)
		b.WriteString(": ")
	}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.message())
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Collection == "" && t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var docErr *Error
	if errors.As(err, &docErr) {
		return docErr.Kind
	}
	return ""
}

func (k Kind) message() string {
	switch k {
	case KindStorage:
		return "storage failure"
	case KindNotFound:
		return "document not found"
	case KindInvalidIdentifier:
		return "invalid identifier"
	case KindUnavailable:
		return "storage unavailable"
	case KindConflict:
		return "duplicate key"
	case KindInvalidQuery:
		return "unsupported query"
	case KindInternal:
		return "internal error"
	default:
		return "error"
	}
}
