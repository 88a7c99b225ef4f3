package ipc

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/noob000007/remote-conda-decorator/types"
)

// kindProbe is used to peek at the discriminant without a full decode.
type kindProbe struct {
	Kind types.PayloadKind `msgpack:"kind"`
}

// ProbeKind returns the discriminant of an encoded payload.
// A map without a kind field yields an empty kind.
func ProbeKind(payload []byte) (types.PayloadKind, error) {
	var probe kindProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return "", &CodecError{
			Kind: CodecErrorDecode,
			Msg:  "failed to decode payload kind",
			Err:  err,
		}
	}
	return probe.Kind, nil
}

// EncodeValue encodes a single argument or result.
func EncodeValue(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &CodecError{
			Kind: CodecErrorEncode,
			Msg:  fmt.Sprintf("cannot encode value of type %T", v),
			Err:  err,
		}
	}
	return b, nil
}

// DecodeValue decodes an encoded argument or result into dst.
func DecodeValue(raw []byte, dst any) error {
	if err := msgpack.Unmarshal(raw, dst); err != nil {
		return &CodecError{
			Kind: CodecErrorDecode,
			Msg:  fmt.Sprintf("cannot decode value into %T", dst),
			Err:  err,
		}
	}
	return nil
}

// EncodeCall encodes a call envelope as a framed artifact.
func EncodeCall(env *types.CallEnvelope) ([]byte, error) {
	if env.Kind != types.KindCall {
		return nil, &CodecError{
			Kind: CodecErrorKindMismatch,
			Msg:  fmt.Sprintf("call envelope has kind %q", env.Kind),
		}
	}
	return encodeFramed(env, "call envelope")
}

// DecodeCall decodes a framed call envelope artifact.
func DecodeCall(artifact []byte) (*types.CallEnvelope, error) {
	payload, err := unwrapKind(artifact, types.KindCall)
	if err != nil {
		return nil, err
	}
	var env types.CallEnvelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return nil, &CodecError{
			Kind: CodecErrorDecode,
			Msg:  "failed to decode call envelope",
			Err:  err,
		}
	}
	return &env, nil
}

// EncodeOutcome encodes an outcome envelope as a framed artifact.
// Outcomes violating the exactly-one-of rule are rejected.
func EncodeOutcome(o *types.OutcomeEnvelope) ([]byte, error) {
	if o.Kind != types.KindOutcome {
		return nil, &CodecError{
			Kind: CodecErrorKindMismatch,
			Msg:  fmt.Sprintf("outcome envelope has kind %q", o.Kind),
		}
	}
	if err := o.Validate(); err != nil {
		return nil, &CodecError{Kind: CodecErrorEncode, Msg: "invalid outcome", Err: err}
	}
	return encodeFramed(o, "outcome envelope")
}

// DecodeOutcome decodes and validates a framed outcome envelope artifact.
func DecodeOutcome(artifact []byte) (*types.OutcomeEnvelope, error) {
	payload, err := unwrapKind(artifact, types.KindOutcome)
	if err != nil {
		return nil, err
	}
	var o types.OutcomeEnvelope
	if err := msgpack.Unmarshal(payload, &o); err != nil {
		return nil, &CodecError{
			Kind: CodecErrorDecode,
			Msg:  "failed to decode outcome envelope",
			Err:  err,
		}
	}
	if err := o.Validate(); err != nil {
		return nil, &CodecError{Kind: CodecErrorDecode, Msg: "invalid outcome", Err: err}
	}
	return &o, nil
}

func encodeFramed(v any, what string) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, &CodecError{
			Kind: CodecErrorEncode,
			Msg:  "failed to encode " + what,
			Err:  err,
		}
	}
	return AppendFrame(make([]byte, 0, LengthPrefixSize+len(payload)), payload)
}

func unwrapKind(artifact []byte, want types.PayloadKind) ([]byte, error) {
	payload, err := UnwrapFrame(artifact)
	if err != nil {
		return nil, err
	}
	kind, err := ProbeKind(payload)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, &CodecError{
			Kind: CodecErrorKindMismatch,
			Msg:  fmt.Sprintf("expected %q payload, got %q", want, kind),
		}
	}
	return payload, nil
}
