package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category carried on the wire as the
// prefix of "<kind>: <detail>".
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindNotFound          ErrorKind = "NotFound"
	KindUnavailable       ErrorKind = "Unavailable"
	KindNotAssigned       ErrorKind = "NotAssigned"
	KindInvalidTransition ErrorKind = "InvalidTransition"
	KindCycleDetected     ErrorKind = "CycleDetected"
	KindConflict          ErrorKind = "Conflict"
	KindTransactionAbort  ErrorKind = "TransactionAborted"
	KindFatal             ErrorKind = "Fatal"
)

// Error is a categorised error. Callers match the kind with errors.As;
// the RPC layer serialises it as "<kind>: <detail>".
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Errf builds a categorised error with a formatted detail string.
func Errf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return Errf(KindValidation, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return Errf(KindNotFound, format, args...)
}

func Unavailablef(format string, args ...any) error {
	return Errf(KindUnavailable, format, args...)
}

func NotAssignedf(format string, args ...any) error {
	return Errf(KindNotAssigned, format, args...)
}

func InvalidTransitionf(format string, args ...any) error {
	return Errf(KindInvalidTransition, format, args...)
}

func CycleDetectedf(format string, args ...any) error {
	return Errf(KindCycleDetected, format, args...)
}

func Conflictf(format string, args ...any) error {
	return Errf(KindConflict, format, args...)
}

func TransactionAbortedf(format string, args ...any) error {
	return Errf(KindTransactionAbort, format, args...)
}

// KindOf extracts the kind from err, unwrapping as needed. Uncategorised
// errors report KindFatal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
