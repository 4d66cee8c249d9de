package fn

import (
	"reflect"
	"runtime"
	"strings"
)

// Name returns the name an orchestrator or activity is registered and scheduled under. Strings are
// returned as-is; for functions and method values the unqualified function name is used.
func Name(target any) string {
	if name, ok := target.(string); ok {
		return name
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}

	name := runtime.FuncForPC(v.Pointer()).Name()

	// Instantiated generic functions carry their type arguments, e.g. pkg.Echo[...]
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}

	name = name[strings.LastIndex(name, ".")+1:]

	return strings.TrimSuffix(name, "-fm")
}
