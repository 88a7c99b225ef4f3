// Package ipc implements the artifact framing, the envelope codec and the
// stdout marker line shared by the caller and the runner program.
package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame size constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxPayloadSize bounds a single envelope. Bulky values belong in a
	// large object, not inline.
	MaxPayloadSize = 512 * 1024 * 1024
)

// CodecErrorKind classifies framing and codec errors.
type CodecErrorKind int

const (
	// CodecErrorPartial indicates a truncated or incomplete frame.
	CodecErrorPartial CodecErrorKind = iota
	// CodecErrorTooLarge indicates a frame exceeding MaxPayloadSize.
	CodecErrorTooLarge
	// CodecErrorDecode indicates a msgpack decoding error.
	CodecErrorDecode
	// CodecErrorEncode indicates a value the codec cannot represent.
	CodecErrorEncode
	// CodecErrorKindMismatch indicates a payload whose discriminant is not
	// the expected one.
	CodecErrorKindMismatch
)

func (k CodecErrorKind) String() string {
	switch k {
	case CodecErrorPartial:
		return "partial"
	case CodecErrorTooLarge:
		return "too_large"
	case CodecErrorDecode:
		return "decode"
	case CodecErrorEncode:
		return "encode"
	case CodecErrorKindMismatch:
		return "kind_mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// CodecError represents a framing or codec failure.
type CodecError struct {
	Kind CodecErrorKind
	Msg  string
	Err  error
}

func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the bytes cannot be trusted at all.
// Partial and oversized frames mean the artifact was cut short or is not ours.
func (e *CodecError) IsFatal() bool {
	return e.Kind == CodecErrorPartial || e.Kind == CodecErrorTooLarge
}

// IsFatalCodecError returns true if the error is a fatal codec error.
func IsFatalCodecError(err error) bool {
	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return codecErr.IsFatal()
	}
	return false
}

// IsCodecErrorKind reports whether err is a CodecError of the given kind.
func IsCodecErrorKind(err error, kind CodecErrorKind) bool {
	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Kind == kind
	}
	return false
}

// AppendFrame appends a length-prefixed frame holding payload to dst.
func AppendFrame(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &CodecError{
			Kind: CodecErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	dst = append(dst, lengthBuf[:]...)
	return append(dst, payload...), nil
}

// FrameDecoder decodes length-prefixed frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw msgpack payload.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *CodecError with Kind=CodecErrorPartial: incomplete frame
//   - *CodecError with Kind=CodecErrorTooLarge: frame exceeds limit
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &CodecError{
			Kind: CodecErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &CodecError{
			Kind: CodecErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &CodecError{
			Kind: CodecErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// UnwrapFrame returns the payload of an artifact holding exactly one frame.
// An empty artifact is reported as partial.
func UnwrapFrame(artifact []byte) ([]byte, error) {
	if len(artifact) == 0 {
		return nil, &CodecError{Kind: CodecErrorPartial, Msg: "empty artifact"}
	}
	return NewFrameDecoder(bytes.NewReader(artifact)).ReadFrame()
}
