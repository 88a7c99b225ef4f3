// Package registry holds the named entry points that can be invoked in
// another environment.
//
// Both processes must register the same names: the caller to resolve a
// function value to its name, the runner program to find the function to
// invoke. Registration normally happens in init() of a package linked into
// both binaries.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Kwargs is the keyword argument set of a call. An entry point accepts
// keyword arguments by declaring Kwargs as its last parameter.
type Kwargs map[string]any

// Registry maps entry-point names to functions. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	byPC    map[uintptr]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		byPC:    make(map[uintptr]string),
	}
}

// Default is the registry used by the package-level functions, the runner
// program and clients that do not set their own.
var Default = New()

// Register adds fn under its default name (see NameOf) and returns the name.
func (r *Registry) Register(fn any) (string, error) {
	name, err := NameOf(fn)
	if err != nil {
		return "", err
	}
	return name, r.RegisterName(name, fn)
}

// MustRegister is like Register but panics on error. Meant for init().
func (r *Registry) MustRegister(fn any) string {
	name, err := r.Register(fn)
	if err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	return name
}

// RegisterName adds fn under an explicit name. This is the way to register
// closures: the captured state must be set up identically in both processes.
func (r *Registry) RegisterName(name string, fn any) error {
	if name == "" {
		return fmt.Errorf("entry point name must be non-empty")
	}
	entry, err := newEntry(name, fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[name]; dup {
		return fmt.Errorf("entry point %q already registered", name)
	}
	r.entries[name] = entry
	// Closures from one factory share a code pointer; such a pointer no
	// longer identifies an entry and is marked ambiguous.
	pc := entry.fn.Pointer()
	if _, seen := r.byPC[pc]; seen {
		r.byPC[pc] = ""
	} else {
		r.byPC[pc] = name
	}
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntryPoint, name)
	}
	return entry, nil
}

// Resolve turns a function value or a name into an entry-point name.
// A string is taken as is, since only the remote side has to know it.
// A function registered here resolves to its registered name; an
// unregistered top-level function falls back to NameOf. Functions sharing
// code with another registered entry, such as closures from one factory,
// cannot be told apart and must be called by name.
func (r *Registry) Resolve(fn any) (string, error) {
	if name, ok := fn.(string); ok {
		if name == "" {
			return "", fmt.Errorf("entry point name must be non-empty")
		}
		return name, nil
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", fmt.Errorf("entry point must be a function or a name, got %T", fn)
	}

	r.mu.RLock()
	name, ok := r.byPC[v.Pointer()]
	r.mu.RUnlock()
	switch {
	case ok && name == "":
		return "", fmt.Errorf("%w: %s; pass the registered name instead", ErrAmbiguousEntryPoint, funcLabel(v))
	case ok:
		return name, nil
	}
	return NameOf(fn)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns the registered entries sorted by name.
func (r *Registry) Entries() []*Entry {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(names))
	for _, name := range names {
		out = append(out, r.entries[name])
	}
	return out
}

// Register adds fn to Default under its default name.
func Register(fn any) (string, error) { return Default.Register(fn) }

// MustRegister adds fn to Default and panics on error.
func MustRegister(fn any) string { return Default.MustRegister(fn) }

// RegisterName adds fn to Default under name.
func RegisterName(name string, fn any) error { return Default.RegisterName(name, fn) }

// Lookup finds name in Default.
func Lookup(name string) (*Entry, error) { return Default.Lookup(name) }

// Resolve resolves fn against Default.
func Resolve(fn any) (string, error) { return Default.Resolve(fn) }

// Names lists Default.
func Names() []string { return Default.Names() }
