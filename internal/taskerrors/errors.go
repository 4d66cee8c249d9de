package taskerrors

import (
	"errors"
	"fmt"

	"github.com/cschleiden/go-taskhub/core"
)

// Well-known failure types produced by the worker itself.
const (
	TypeActivityNotFound          = "ActivityNotFound"
	TypeOrchestratorNotRegistered = "OrchestratorNotRegistered"
	TypeNonDeterminism            = "NonDeterminismError"
	TypeInvalidHistory            = "InvalidHistory"
	TypeTaskTerminated            = "ExecutionTerminated"
)

// NonRetriableError marks an error as not worth retrying. Retry policies give up immediately when they
// see it, and the failure reported to the coordinator carries IsNonRetriable.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return e.Err.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

func NewNonRetriableError(err error) error {
	if err == nil {
		return nil
	}

	return &NonRetriableError{Err: err}
}

// IsNonRetriable returns true if err, or a failure it wraps, must not be retried.
func IsNonRetriable(err error) bool {
	var nre *NonRetriableError
	if errors.As(err, &nre) {
		return true
	}

	var tfe *core.TaskFailedError
	if errors.As(err, &tfe) && tfe.Details != nil {
		return tfe.Details.IsNonRetriable
	}

	return false
}

// FailureDetailsFromError converts err into the wire representation of a failure. The error type is the
// name of the concrete error type; stack traces are preserved if err carries one.
func FailureDetailsFromError(err error) *core.FailureDetails {
	if err == nil {
		return nil
	}

	// Failures coming back from a task keep their original shape
	var tfe *core.TaskFailedError
	if errors.As(err, &tfe) && tfe == err {
		return tfe.Details
	}

	nonRetriable := false
	if nre, ok := err.(*NonRetriableError); ok {
		nonRetriable = true
		err = nre.Err
	}

	fd := &core.FailureDetails{
		ErrorType:      errorType(err),
		ErrorMessage:   err.Error(),
		IsNonRetriable: nonRetriable,
	}

	if st := stackOf(err); st != "" {
		fd.StackTrace = &st
	}

	if cause := errors.Unwrap(err); cause != nil {
		fd.InnerFailure = FailureDetailsFromError(cause)
	}

	return fd
}

func errorType(err error) string {
	if typed, ok := err.(interface{ ErrorType() string }); ok {
		return typed.ErrorType()
	}

	return getErrorType(err)
}

// NewFailure creates failure details for errors detected by the worker itself.
func NewFailure(errorType, format string, args ...any) *core.FailureDetails {
	return &core.FailureDetails{
		ErrorType:    errorType,
		ErrorMessage: fmt.Sprintf(format, args...),
	}
}

// ErrorFromFailure reconstructs an error from the failure details of a task.
func ErrorFromFailure(taskID int32, name string, fd *core.FailureDetails) error {
	if fd == nil {
		return nil
	}

	return &core.TaskFailedError{TaskID: taskID, TaskName: name, Details: fd}
}
