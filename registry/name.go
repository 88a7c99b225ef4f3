package registry

import (
	"fmt"
	"go/token"
	"reflect"
	"runtime"
	"strings"
)

// NameOf returns the default entry-point name of fn: its import path and
// function name, e.g. "github.com/acme/tools.Scale". Only top-level exported
// functions have a stable name; methods, closures and function variables
// must be registered with an explicit name.
func NameOf(fn any) (string, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", fmt.Errorf("entry point must be a function, got %T", fn)
	}
	rtFunc := runtime.FuncForPC(v.Pointer())
	if rtFunc == nil {
		return "", fmt.Errorf("unable to find function")
	}
	fullName := rtFunc.Name()

	if strings.HasSuffix(fullName, "-fm") {
		return "", fmt.Errorf("cannot use receiver method as entry point")
	}

	// Anonymous functions and generic instantiations fail the exported
	// check below once split on the last dot.
	lastDot := strings.LastIndex(fullName, ".")
	if lastDot < 0 {
		return "", fmt.Errorf("unable to split function name %q", fullName)
	}
	pkg, name := fullName[:lastDot], fullName[lastDot+1:]
	if strings.ContainsAny(pkg[strings.LastIndex(pkg, "/")+1:], "()[]") ||
		strings.ContainsAny(name, "[]") || !token.IsExported(name) {
		return "", fmt.Errorf("function must be top-level and exported")
	}
	return pkg + "." + name, nil
}

// funcLabel names the code of a function value for error messages.
func funcLabel(v reflect.Value) string {
	if rtFunc := runtime.FuncForPC(v.Pointer()); rtFunc != nil {
		return rtFunc.Name()
	}
	return v.Type().String()
}
