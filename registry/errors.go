package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrUnknownEntryPoint is returned when a name is not registered.
var ErrUnknownEntryPoint = errors.New("unknown entry point")

// ErrAmbiguousEntryPoint is returned when a function value matches several
// registered entries.
var ErrAmbiguousEntryPoint = errors.New("ambiguous entry point")

// ArgumentError reports arguments that do not fit the entry point signature.
type ArgumentError struct {
	Func string
	// Index is the positional argument index, or -1 for arity and keyword
	// argument problems.
	Index int
	Msg   string
	Err   error
}

func (e *ArgumentError) Error() string {
	var b strings.Builder
	b.WriteString(e.Func)
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": argument %d", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// PanicError carries a panic recovered from an entry point.
type PanicError struct {
	Func  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Func, e.Value)
}

// TypeNamer lets an error choose the type name reported to the caller.
type TypeNamer interface {
	ErrorType() string
}

// ErrorTypeName returns the name reported for err in a remote failure.
// It is the ErrorType() of the first error in the chain implementing
// TypeNamer, else the Go type of err without pointer marks.
func ErrorTypeName(err error) string {
	var namer TypeNamer
	if errors.As(err, &namer) {
		return namer.ErrorType()
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "error"
	}
	return t.String()
}
