package taskerrors

import (
	"strings"

	goerrors "github.com/go-errors/errors"
)

func stackOf(err error) string {
	switch e := err.(type) {
	case interface{ Stack() string }:
		return e.Stack()
	case interface{ StackTrace() string }:
		return e.StackTrace()
	case *goerrors.Error:
		return string(e.Stack())
	}

	return ""
}

// stack returns the current goroutine stack, skipping the given number of frames.
func stack(skip int) string {
	goerr := goerrors.Wrap("", skip)

	var b strings.Builder
	for _, frame := range goerr.StackFrames() {
		b.WriteString(frame.String())
	}

	return b.String()
}
