// Package errs defines the typed error taxonomy every subsystem returns.
// Errors are distinguished by Kind, never by Go type assertion on a
// concrete struct, so that the orchestrator can map a Kind to an exit
// code (internal/exitcode) without importing every producer package.
package errs

import "fmt"

// Kind names one of the recognized failure categories.
type Kind string

const (
	SchemaStale         Kind = "schema_stale"
	BuildOutOfDate       Kind = "build_out_of_date"
	ExtractionFailure    Kind = "extraction_failure"
	FidelityMismatch     Kind = "fidelity_mismatch"
	ConstraintViolation  Kind = "constraint_violation"
	SubprocessTimeout    Kind = "subprocess_timeout"
	IOError              Kind = "io_error"
	AmbiguousName        Kind = "ambiguous_name"
)

// Error wraps an underlying cause with a Kind and the context the
// taxonomy requires (table/file/row where applicable).
type Error struct {
	Kind    Kind
	Table   string
	File    string
	Row     int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	parts := string(e.Kind)
	if e.Table != "" {
		parts += fmt.Sprintf(" table=%s", e.Table)
	}
	if e.File != "" {
		parts += fmt.Sprintf(" file=%s", e.File)
	}
	if e.Row != 0 {
		parts += fmt.Sprintf(" row=%d", e.Row)
	}
	if e.Message != "" {
		parts += ": " + e.Message
	}
	if e.Cause != nil {
		parts += ": " + e.Cause.Error()
	}
	return parts
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, errs.SchemaStale)-style comparisons by
// Kind rather than identity, via a companion sentinel type below.
func (e *Error) Is(target error) bool {
	k, ok := target.(sentinelError)
	if !ok {
		return false
	}
	return e.Kind == Kind(k)
}

type kindSentinel Kind

// Sentinel returns a value usable with errors.Is to test a Kind:
//
//	if errors.Is(err, errs.Sentinel(errs.SchemaStale)) { ... }
func Sentinel(k Kind) error { return sentinelError(k) }

type sentinelError Kind

func (s sentinelError) Error() string { return string(s) }
func (s sentinelError) Is(target error) bool {
	e, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == Kind(s)
}

// New constructs an *Error with the given kind and message, no cause.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message}
}

// Wrap constructs an *Error wrapping cause with the given kind.
func Wrap(k Kind, cause error, message string) *Error {
	return &Error{Kind: k, Cause: cause, Message: message}
}

// WithTable attaches table/row context (used by the store on flush failures).
func (e *Error) WithTable(table string, row int) *Error {
	e.Table = table
	e.Row = row
	return e
}

// WithFile attaches file context (used by extractors and the indexer).
func (e *Error) WithFile(file string) *Error {
	e.File = file
	return e
}

// Fatal reports whether a Kind's documented recovery policy is "Fatal"
// (as opposed to "record and continue" or "skip row").
func Fatal(k Kind) bool {
	switch k {
	case ExtractionFailure, AmbiguousName:
		return false
	default:
		return true
	}
}
