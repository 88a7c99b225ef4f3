package remote

import (
	"errors"
	"fmt"
	"strings"
)

// EncodeError reports an argument that could not be encoded. The call never
// reached the target environment.
type EncodeError struct {
	Func string
	// Index is the positional argument index, or -1 for a keyword argument.
	Index int
	// Key is the keyword argument name when Index is -1.
	Key string
	Err error
}

func (e *EncodeError) Error() string {
	if e.Index < 0 && e.Key != "" {
		return fmt.Sprintf("%s: cannot encode keyword argument %q: %v", e.Func, e.Key, e.Err)
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s: cannot encode call: %v", e.Func, e.Err)
	}
	return fmt.Sprintf("%s: cannot encode argument %d: %v", e.Func, e.Index, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// TransportKind classifies transport failures.
type TransportKind string

const (
	// TransportSpawn: the launcher could not be started.
	TransportSpawn TransportKind = "spawn"
	// TransportExit: the child exited non-zero.
	TransportExit TransportKind = "exit"
	// TransportNoResultPath: the child exited zero without printing the
	// marker for the expected result artifact.
	TransportNoResultPath TransportKind = "no_result_path"
	// TransportResultMissing: the marker named a result artifact that does
	// not exist.
	TransportResultMissing TransportKind = "result_missing"
	// TransportResultUnreadable: the result artifact could not be decoded.
	TransportResultUnreadable TransportKind = "result_unreadable"
	// TransportCanceled: the context ended or the timeout fired and the
	// child was killed.
	TransportCanceled TransportKind = "canceled"
)

// TransportError reports a call that did not deliver an outcome.
// It is never retried.
type TransportError struct {
	Kind TransportKind
	Func string
	Env  string
	// ExitCode is the child's exit code, or -1 when it did not exit
	// normally or never started.
	ExitCode int
	// Stderr is the tail of the child's diagnostic output.
	Stderr string
	Msg    string
	Err    error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in env %q: %s", e.Func, e.Env, e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is an application failure delivered from the target
// environment. The RPC itself succeeded.
type RemoteError struct {
	Func string
	Env  string
	// Type is the remote error type name.
	Type      string
	Message   string
	Traceback string
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed in env %q: %s: %s", e.Func, e.Env, e.Type, e.Message)
	if tb := strings.TrimRight(e.Traceback, "\n"); tb != "" {
		b.WriteString("\nremote traceback:\n")
		b.WriteString(tb)
	}
	return b.String()
}

// ErrorType implements registry.TypeNamer, so a RemoteError returned by a
// nested call keeps its original type name.
func (e *RemoteError) ErrorType() string {
	return e.Type
}

// IsTransportKind reports whether err is a TransportError of kind.
func IsTransportKind(err error, kind TransportKind) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
