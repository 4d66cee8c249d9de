package taskerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/stretchr/testify/require"
)

type InsufficientFundsError struct {
	Account string
}

func (e *InsufficientFundsError) Error() string {
	return "insufficient funds in " + e.Account
}

func Test_FailureDetailsFromError_Nil(t *testing.T) {
	require.Nil(t, FailureDetailsFromError(nil))
}

func Test_FailureDetailsFromError_PlainError(t *testing.T) {
	fd := FailureDetailsFromError(errors.New("boom"))

	require.Equal(t, TypeError, fd.ErrorType)
	require.Equal(t, "boom", fd.ErrorMessage)
	require.Nil(t, fd.StackTrace)
	require.Nil(t, fd.InnerFailure)
	require.False(t, fd.IsNonRetriable)
}

func Test_FailureDetailsFromError_CustomTypeAndCause(t *testing.T) {
	err := fmt.Errorf("charging order: %w", &InsufficientFundsError{Account: "acct-1"})

	fd := FailureDetailsFromError(err)
	require.Equal(t, "charging order: insufficient funds in acct-1", fd.ErrorMessage)
	require.NotNil(t, fd.InnerFailure)
	require.Equal(t, "InsufficientFundsError", fd.InnerFailure.ErrorType)
}

func Test_FailureDetailsFromError_NonRetriable(t *testing.T) {
	err := NewNonRetriableError(&InsufficientFundsError{Account: "acct-1"})

	require.True(t, IsNonRetriable(err))

	fd := FailureDetailsFromError(err)
	require.True(t, fd.IsNonRetriable)
	require.Equal(t, "InsufficientFundsError", fd.ErrorType)
}

func Test_FailureDetailsFromError_KeepsTaskFailure(t *testing.T) {
	details := &core.FailureDetails{ErrorType: "Remote", ErrorMessage: "nope", IsNonRetriable: true}
	err := ErrorFromFailure(2, "charge", details)

	require.Same(t, details, FailureDetailsFromError(err))
	require.True(t, IsNonRetriable(err))
}

func Test_FailureDetailsFromError_Panic(t *testing.T) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = NewPanicError(r)
			}
		}()

		panic("kaboom")
	}()

	fd := FailureDetailsFromError(err)
	require.Equal(t, "PanicError", fd.ErrorType)
	require.Equal(t, "panic: kaboom", fd.ErrorMessage)
	require.NotNil(t, fd.StackTrace)
	require.Contains(t, *fd.StackTrace, "Test_FailureDetailsFromError_Panic")
}

func Test_ErrorFromFailure(t *testing.T) {
	require.NoError(t, ErrorFromFailure(1, "x", nil))

	err := ErrorFromFailure(1, "charge", NewFailure(TypeActivityNotFound, "activity %q not found", "charge"))

	var tfe *core.TaskFailedError
	require.ErrorAs(t, err, &tfe)
	require.Equal(t, TypeActivityNotFound, tfe.ErrorType())
	require.Equal(t, `activity "charge" not found`, tfe.Details.ErrorMessage)
	require.False(t, IsNonRetriable(err))
}

func Test_getErrorType(t *testing.T) {
	require.Equal(t, TypeError, getErrorType(errors.New("test")))
	require.Equal(t, TypeError, getErrorType(fmt.Errorf("wrapped: %w", errors.New("test"))))
	require.Equal(t, TypeError, getErrorType(fmt.Errorf("plain")))
	require.Equal(t, TypeError, getErrorType(errors.Join(errors.New("a"), errors.New("b"))))
	require.Equal(t, "InsufficientFundsError", getErrorType(&InsufficientFundsError{}))
}

type typedError struct{}

func (typedError) Error() string     { return "typed" }
func (typedError) ErrorType() string { return TypeOrchestratorNotRegistered }

func Test_FailureDetailsFromError_ExplicitErrorType(t *testing.T) {
	fd := FailureDetailsFromError(typedError{})
	require.Equal(t, TypeOrchestratorNotRegistered, fd.ErrorType)
}
