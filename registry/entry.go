package registry

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	kwargsType  = reflect.TypeOf(Kwargs(nil))
)

// PrepareFunc is called with a pointer to every decoded positional argument
// before invocation. For pointer parameters it receives the pointer itself.
// The runner program uses it to rehydrate large objects.
type PrepareFunc func(ctx context.Context, arg any) error

// Entry is a registered entry point with its validated signature.
//
// Accepted shapes: an optional leading context.Context, positional
// parameters, an optional trailing Kwargs; results (), (error), (R) or
// (R, error).
type Entry struct {
	name       string
	fn         reflect.Value
	takesCtx   bool
	takesKw    bool
	params     []reflect.Type
	hasResult  bool
	returnsErr bool
}

func newEntry(name string, fn any) (*Entry, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("entry point %q must be a function, got %T", name, fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("entry point %q: variadic functions are not supported", name)
	}

	e := &Entry{name: name, fn: v}
	in := make([]reflect.Type, t.NumIn())
	for i := range in {
		in[i] = t.In(i)
	}
	if len(in) > 0 && in[0] == contextType {
		e.takesCtx = true
		in = in[1:]
	}
	if len(in) > 0 && in[len(in)-1] == kwargsType {
		e.takesKw = true
		in = in[:len(in)-1]
	}
	for i, p := range in {
		if p == contextType || p == kwargsType {
			return nil, fmt.Errorf("entry point %q: parameter %d: %s is only allowed first (context) or last (Kwargs)", name, i, p)
		}
		if k := p.Kind(); k == reflect.Chan || k == reflect.Func || k == reflect.UnsafePointer {
			return nil, fmt.Errorf("entry point %q: parameter %d: %s cannot cross a process boundary", name, i, p)
		}
	}
	e.params = in

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			e.returnsErr = true
		} else {
			e.hasResult = true
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("entry point %q: second result must be error", name)
		}
		e.hasResult, e.returnsErr = true, true
	default:
		return nil, fmt.Errorf("entry point %q: at most two results are supported", name)
	}
	return e, nil
}

// Name returns the registered name.
func (e *Entry) Name() string { return e.name }

// NumArgs returns the number of positional parameters.
func (e *Entry) NumArgs() int { return len(e.params) }

// AcceptsKwargs reports whether the entry point takes keyword arguments.
func (e *Entry) AcceptsKwargs() bool { return e.takesKw }

// Signature renders the entry point's Go signature for listings.
func (e *Entry) Signature() string {
	return strings.Replace(e.fn.Type().String(), "func", e.name, 1)
}

// Invoke decodes args and kwargs and calls the entry point.
//
// Argument problems are reported as *ArgumentError and panics as
// *PanicError. Any other error is the entry point's own.
// Entry points without a value result return nil.
func (e *Entry) Invoke(ctx context.Context, args [][]byte, kwargs map[string][]byte, prepare PrepareFunc) (result any, err error) {
	if len(args) != len(e.params) {
		return nil, &ArgumentError{
			Func:  e.name,
			Index: -1,
			Msg:   fmt.Sprintf("takes %d positional arguments but %d were given", len(e.params), len(args)),
		}
	}
	if len(kwargs) > 0 && !e.takesKw {
		return nil, &ArgumentError{Func: e.name, Index: -1, Msg: "does not accept keyword arguments"}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	in := make([]reflect.Value, 0, len(args)+2)
	if e.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, raw := range args {
		v, err := e.decodeArg(ctx, i, raw, prepare)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}
	if e.takesKw {
		kw, err := e.decodeKwargs(kwargs)
		if err != nil {
			return nil, err
		}
		in = append(in, reflect.ValueOf(kw))
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &PanicError{Func: e.name, Value: r, Stack: debug.Stack()}
		}
	}()
	out := e.fn.Call(in)

	if e.returnsErr {
		if errV := out[len(out)-1]; !errV.IsNil() {
			return nil, errV.Interface().(error)
		}
	}
	if e.hasResult {
		return out[0].Interface(), nil
	}
	return nil, nil
}

func (e *Entry) decodeArg(ctx context.Context, i int, raw []byte, prepare PrepareFunc) (reflect.Value, error) {
	ptr := reflect.New(e.params[i])
	if err := msgpack.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, &ArgumentError{
			Func:  e.name,
			Index: i,
			Msg:   "cannot decode into " + e.params[i].String(),
			Err:   err,
		}
	}
	if prepare != nil {
		target := ptr.Interface()
		if elem := ptr.Elem(); elem.Kind() == reflect.Pointer && !elem.IsNil() {
			target = elem.Interface()
		}
		if err := prepare(ctx, target); err != nil {
			return reflect.Value{}, &ArgumentError{Func: e.name, Index: i, Msg: "cannot prepare argument", Err: err}
		}
	}
	return ptr.Elem(), nil
}

func (e *Entry) decodeKwargs(kwargs map[string][]byte) (Kwargs, error) {
	kw := make(Kwargs, len(kwargs))
	for key, raw := range kwargs {
		var v any
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return nil, &ArgumentError{
				Func:  e.name,
				Index: -1,
				Msg:   fmt.Sprintf("cannot decode keyword argument %q", key),
				Err:   err,
			}
		}
		kw[key] = v
	}
	return kw, nil
}
