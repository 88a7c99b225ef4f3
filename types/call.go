package types

// PayloadKind is the discriminant carried by every encoded envelope.
// Receivers check it by value; Go type identity never crosses the process
// boundary.
type PayloadKind string

const (
	KindCall        PayloadKind = "call"
	KindOutcome     PayloadKind = "outcome"
	KindLargeObject PayloadKind = "large_object"
)

// CallEnvelope is the encoded request handed to the runner program.
// It is built once immediately before encoding and never mutated.
type CallEnvelope struct {
	// Kind is always KindCall.
	Kind PayloadKind `msgpack:"kind"`
	// Protocol is the wire format version of the sender.
	Protocol int `msgpack:"protocol"`
	// CallID matches the token embedded in the artifact names.
	CallID string `msgpack:"call_id"`
	// Func is the registered entry point name.
	Func string `msgpack:"func"`
	// Args holds each positional argument encoded on its own, so the runner
	// can decode it into the entry point's parameter type. Nested encodings
	// travel as bin so an encoded nil survives the outer decode.
	Args [][]byte `msgpack:"args"`
	// Kwargs holds keyword arguments. Keys are unique by construction.
	Kwargs map[string][]byte `msgpack:"kwargs"`
	// Cwd is the caller's working directory.
	Cwd string `msgpack:"cwd"`
}

// NewCallEnvelope returns an envelope with the discriminant and protocol set.
func NewCallEnvelope(callID, fn string, args [][]byte, kwargs map[string][]byte, cwd string) *CallEnvelope {
	if args == nil {
		args = [][]byte{}
	}
	if kwargs == nil {
		kwargs = map[string][]byte{}
	}
	return &CallEnvelope{
		Kind:     KindCall,
		Protocol: ProtocolVersion,
		CallID:   callID,
		Func:     fn,
		Args:     args,
		Kwargs:   kwargs,
		Cwd:      cwd,
	}
}
