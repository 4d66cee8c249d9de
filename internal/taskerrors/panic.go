package taskerrors

import "fmt"

// PanicError is produced when user code panics while running as part of a task.
type PanicError struct {
	message    string
	stacktrace string
}

func (pe *PanicError) Error() string {
	return pe.message
}

func (pe *PanicError) Stack() string {
	return pe.stacktrace
}

// NewPanicError captures the current stack. It has to be called from the deferred recover handler.
func NewPanicError(r any) *PanicError {
	return &PanicError{
		message:    fmt.Sprintf("panic: %v", r),
		stacktrace: stack(3),
	}
}
