package taskerrors

import "reflect"

// TypeError is the failure type of errors without a named type of their own, like the ones created
// by errors.New or fmt.Errorf.
const TypeError = "error"

// getErrorType returns the name of the given error type
func getErrorType(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch {
	case t.PkgPath() == "errors" && (t.Name() == "errorString" || t.Name() == "joinError"):
		return TypeError
	case t.PkgPath() == "fmt" && (t.Name() == "wrapError" || t.Name() == "wrapErrors"):
		return TypeError
	case t.Name() == "":
		return TypeError
	}

	return t.Name()
}
