// Package types defines the wire and domain types shared by the caller and
// the runner program.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
)

// CallMeta identifies a single remote call.
// Every log entry written on behalf of a call carries these fields.
type CallMeta struct {
	// CallID is unique per call. Artifact names embed the same token.
	CallID string
	// Env is the target environment name.
	Env string
	// Func is the entry point name.
	Func string
}

// Validate checks that the call identity is complete.
func (m *CallMeta) Validate() error {
	if m.CallID == "" {
		return errors.New("call_id must be non-empty")
	}
	if m.Func == "" {
		return errors.New("func must be non-empty")
	}
	return nil
}
