// Package apperr defines the error kinds returned by the chat core.
//
// Every operation reports failures as an *Error carrying one Kind. Callers
// branch on the kind with errors.Is against the package sentinels or with
// KindOf; storage detail stays in the wrapped cause and never in Msg.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindExpired
	KindExhausted
	KindValidation
	KindTransientStorage
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindNotFound:         "not_found",
	KindForbidden:        "forbidden",
	KindConflict:         "conflict",
	KindExpired:          "expired",
	KindExhausted:        "exhausted",
	KindValidation:       "validation",
	KindTransientStorage: "transient_storage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the typed error returned across package boundaries.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Public renders the error without the wrapped cause, for use at the API boundary.
func (e *Error) Public() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind whose Msg is
// empty or equal, so both kind sentinels and named sentinels work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

// Kind sentinels, usable with errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrExhausted        = &Error{Kind: KindExhausted}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrTransientStorage = &Error{Kind: KindTransientStorage}
)

// New builds a sentinel-style error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Wrap tags err with the operation name. Errors that already carry a kind keep
// it; record-not-found becomes notFound; a unique-key violation becomes
// Conflict; everything else is treated as a storage failure.
func Wrap(op string, err error, notFound *Error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op != "" {
			return err
		}
		return &Error{Kind: e.Kind, Op: op, Msg: e.Msg, Err: e.Err}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if notFound == nil {
			notFound = ErrNotFound
		}
		return &Error{Kind: KindNotFound, Op: op, Msg: notFound.Msg}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &Error{Kind: KindConflict, Op: op, Msg: "already exists", Err: err}
	}
	return Storage(op, err)
}

// Storage wraps a driver, connection or context failure.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := "storage unavailable"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "operation cancelled"
	}
	return &Error{Kind: KindTransientStorage, Op: op, Msg: msg, Err: err}
}
