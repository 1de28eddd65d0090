// Package errors provides error handling for questboard.
//
// It re-exports github.com/cockroachdb/errors and defines the sentinel
// errors shared by the lifecycle engine. Callers check errors with Is:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // no such job
//	}
//
// Repository failures are marked with ErrPersistence so that the board can
// tell storage problems apart from validation failures.
package errors

import (
	"fmt"
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Aggregation
var (
	CombineErrors = crdb.CombineErrors
)

// Sentinel errors for the lifecycle engine.
var (
	// ErrNotFound indicates the requested job does not exist
	ErrNotFound = New("not found")

	// ErrValidation indicates a job failed field-level validation
	ErrValidation = New("validation failed")

	// ErrInvalidTransition indicates an illegal status change
	ErrInvalidTransition = New("invalid status transition")

	// ErrPersistence indicates the repository failed to load or save
	ErrPersistence = New("persistence failure")

	// ErrAlreadyDistributed indicates rewards for a job were already paid out
	ErrAlreadyDistributed = New("rewards already distributed")
)

// FieldError is a validation failure on a single job field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every field failure found on a job.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Is makes ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a failure on field.
func (e *ValidationError) Add(field, format string, args ...interface{}) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// OrNil returns e when it holds failures and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// TransitionError names an illegal (from, to) status pair.
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes TransitionError match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Persistence wraps a repository failure and marks it with ErrPersistence.
func Persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, msg), ErrPersistence)
}

// NotFound returns an ErrNotFound wrapped with the missing resource.
func NotFound(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsPersistenceError checks if an error is or wraps ErrPersistence.
func IsPersistenceError(err error) bool {
	return err != nil && Is(err, ErrPersistence)
}
