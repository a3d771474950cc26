// Package errors defines the error kinds shared by the engine, the stores and
// the outer surfaces, plus the CLI's
// "Error: " formatting helpers.
package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/streakly/internal/logger"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is input rejected before any mutation.
	KindValidation
	// KindConflict is a duplicate completion or a concurrent collision.
	KindConflict
	// KindUnavailable is a store that could not be reached or refused the call.
	KindUnavailable
	// KindNotFound is an unknown habit or record.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrNotFound    = &Error{Kind: KindNotFound}
)

// Error carries a Kind, the operation that failed and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so a sentinel compares equal to
// every error of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation returns a KindValidation error.
func Validation(op, format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Conflict wraps err as a KindConflict error.
func Conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

// Unavailable wraps err as a KindUnavailable error. A nil err yields nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

// NotFound returns a KindNotFound error for the named entity.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Classify leaves typed errors alone and marks everything else unavailable.
// Stores use it at their boundary.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return Unavailable(op, err)
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// New re-exports errors.New.
func New(text string) error { return stderrors.New(text) }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("command failed", "error", err, "kind", KindOf(err).String())
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	logger.Error("command failed", "error", fmt.Sprintf(format, args...))
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}

// Join re-exports errors.Join.
func Join(errs ...error) error { return stderrors.Join(errs...) }
