// Package largeobj implements the large-object proxy: a value that crosses
// the process boundary as a file in the artifact store, with only a small
// reference inside the call or outcome envelope.
//
// A proxy moves through three states. Attached: it holds its value.
// Externalized: the value was written to the store and encoding the proxy
// yields the reference. Referenced: it was decoded from a reference and
// holds no value until Rehydrate reads it back, after which it is Attached.
package largeobj

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/noob000007/remote-conda-decorator/shm"
	"github.com/noob000007/remote-conda-decorator/types"
)

// Externalizer is a value that must be written to the store before it is
// encoded, and whose file the sending side removes after the call.
type Externalizer interface {
	Externalize(ctx context.Context, store *shm.Store) error
	Cleanup(ctx context.Context)
}

// Rehydrator is a decoded value that must read its content back from the
// store before use.
type Rehydrator interface {
	Rehydrate(ctx context.Context, store *shm.Store) error
}

// AsExternalizer returns v as an Externalizer. A nil proxy pointer is not
// one: it has no value to write and encodes as a plain nil.
func AsExternalizer(v any) (Externalizer, bool) {
	ext, ok := v.(Externalizer)
	if !ok {
		return nil, false
	}
	if rv := reflect.ValueOf(ext); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, false
	}
	return ext, true
}

// ErrNotExternalized is returned when a proxy is encoded before Externalize.
var ErrNotExternalized = errors.New("large object was not externalized")

// ErrNotAttached is returned when a referenced proxy is externalized
// before it was rehydrated.
var ErrNotAttached = errors.New("large object holds no value")

// Object is a large-object proxy around a value of type T.
// Pass *Object[T] as an argument or return it from an entry point.
type Object[T any] struct {
	value    T
	attached bool
	mode     string

	ref   *types.LargeObjectRef
	owner *shm.Store // set only on the instance that wrote the file
}

var (
	_ Externalizer = (*Object[int])(nil)
	_ Rehydrator   = (*Object[int])(nil)
)

// New returns an attached proxy. An empty mode selects the default "r+".
func New[T any](value T, mode string) *Object[T] {
	if mode == "" {
		mode = types.DefaultLargeObjectMode
	}
	return &Object[T]{value: value, attached: true, mode: mode}
}

// Value returns the held value. It is the zero value until a referenced
// proxy is rehydrated.
func (o *Object[T]) Value() T { return o.value }

// Attached reports whether the proxy holds its value.
func (o *Object[T]) Attached() bool { return o.attached }

// Mode returns the access-mode hint.
func (o *Object[T]) Mode() string { return o.mode }

// TempPath returns the externalized file path, or "" before Externalize or
// decoding.
func (o *Object[T]) TempPath() string {
	if o.ref == nil {
		return ""
	}
	return o.ref.TempPath
}

// Reference returns the current reference, or nil.
func (o *Object[T]) Reference() *types.LargeObjectRef { return o.ref }

// Externalize writes the value to a fresh store file. Calling it again on
// the instance that owns the file is a no-op.
func (o *Object[T]) Externalize(ctx context.Context, store *shm.Store) error {
	if o.owner != nil {
		return nil
	}
	if !o.attached {
		return ErrNotAttached
	}
	raw, err := msgpack.Marshal(o.value)
	if err != nil {
		return fmt.Errorf("encode large object value: %w", err)
	}
	ref, err := Write(ctx, store, raw, o.mode)
	if err != nil {
		return err
	}
	o.ref = ref
	o.owner = store
	return nil
}

// Rehydrate reads the value back from the file named by the reference.
// An attached proxy is left as is.
func (o *Object[T]) Rehydrate(ctx context.Context, store *shm.Store) error {
	if o.attached {
		return nil
	}
	if o.ref == nil {
		return errors.New("large object has neither value nor reference")
	}
	raw, err := Load(ctx, store, o.ref)
	if err != nil {
		return err
	}
	var v T
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode large object %s: %w", o.ref.TempPath, err)
	}
	o.value = v
	o.attached = true
	return nil
}

// Cleanup removes the externalized file and drops the reference, so the
// proxy can be externalized again for a later call. It only acts on the
// instance that wrote the file and may be called any number of times.
func (o *Object[T]) Cleanup(ctx context.Context) {
	if o.owner == nil || o.ref == nil {
		return
	}
	_ = Remove(ctx, o.owner, o.ref)
	o.owner = nil
	o.ref = nil
}

// EncodeMsgpack writes the reference. The value never travels inline.
func (o *Object[T]) EncodeMsgpack(enc *msgpack.Encoder) error {
	if o.ref == nil {
		return ErrNotExternalized
	}
	return enc.Encode(o.ref)
}

// DecodeMsgpack accepts a reference, recorded for Rehydrate, or a plain
// encoded T, which leaves the proxy attached. The latter is what a caller
// receives when it asks for a proxy result: the orchestrator has already
// resolved the reference.
func (o *Object[T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeRaw()
	if err != nil {
		return err
	}
	if ref, ok := ParseReference(raw); ok {
		o.ref = ref
		o.mode = ref.Mode
		o.attached = false
		return nil
	}
	var v T
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return err
	}
	o.value = v
	o.attached = true
	if o.mode == "" {
		o.mode = types.DefaultLargeObjectMode
	}
	return nil
}
