package core

import "fmt"

// FailureDetails describes a failed task. It carries enough information to reconstruct a typed
// failure where the task was awaited.
type FailureDetails struct {
	ErrorType string `json:"errorType"`

	ErrorMessage string `json:"errorMessage"`

	StackTrace *string `json:"stackTrace,omitempty"`

	InnerFailure *FailureDetails `json:"inner,omitempty"`

	// IsNonRetriable indicates that retrying the task will not succeed.
	IsNonRetriable bool `json:"nonRetriable,omitempty"`
}

func (fd *FailureDetails) String() string {
	if fd == nil {
		return ""
	}

	if fd.ErrorType == "" {
		return fd.ErrorMessage
	}

	return fmt.Sprintf("%s: %s", fd.ErrorType, fd.ErrorMessage)
}

// TaskFailedError is returned when awaiting an activity or sub-orchestration that failed.
type TaskFailedError struct {
	TaskID int32

	TaskName string

	Details *FailureDetails
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %q (#%d) failed: %s", e.TaskName, e.TaskID, e.Details.ErrorMessage)
}

// ErrorType returns the type of the original error
func (e *TaskFailedError) ErrorType() string {
	return e.Details.ErrorType
}

func (e *TaskFailedError) StackTrace() string {
	if e.Details.StackTrace == nil {
		return ""
	}

	return *e.Details.StackTrace
}

var _ error = (*TaskFailedError)(nil)
