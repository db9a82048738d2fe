// Package exitcode maps the typed error taxonomy in internal/errs onto the
// three process exit codes the external interface contract defines: OK,
// SCHEMA_STALE (caller must re-run), and FATAL. Adapted from the teacher's
// severity-driven DetermineExitCode in output/exit_code.go, retargeted from
// finding-severity precedence to error-kind precedence.
package exitcode

import (
	"errors"

	"github.com/theauditor/auditor-core/internal/errs"
)

// Code is one of the three documented process exit codes.
type Code int

const (
	OK          Code = 0
	SchemaStale Code = 3
	Fatal       Code = 2
)

// FromError maps a run's terminal error (nil on success) to a Code.
// A schema-stale or build-out-of-date error always means "re-run me";
// every other non-nil error that internal/errs.Fatal marks fatal becomes
// FATAL. Non-fatal kinds (extraction_failure, ambiguous_name) are never
// expected to reach here — callers record them as findings and continue.
func FromError(err error) Code {
	if err == nil {
		return OK
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		return Fatal
	}
	switch e.Kind {
	case errs.SchemaStale, errs.BuildOutOfDate:
		return SchemaStale
	default:
		return Fatal
	}
}

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case SchemaStale:
		return "SCHEMA_STALE"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
