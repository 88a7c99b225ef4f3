package types

import "errors"

// LargeObjectFormat names the on-disk encoding of an externalized value.
type LargeObjectFormat string

// LargeObjectFormatMsgpackLZ4 is msgpack inside an lz4 frame.
const LargeObjectFormatMsgpackLZ4 LargeObjectFormat = "msgpack+lz4"

// DefaultLargeObjectMode is the access-mode hint used when none is given.
const DefaultLargeObjectMode = "r+"

// LargeObjectRef is what travels in place of an externalized value.
type LargeObjectRef struct {
	// Kind is always KindLargeObject.
	Kind PayloadKind `msgpack:"kind" json:"kind"`
	// TempPath is the absolute path of the externalized file.
	TempPath string `msgpack:"temp_path" json:"temp_path"`
	// Mode is an access-mode hint for reconstruction.
	Mode string `msgpack:"mode" json:"mode"`
	// Format is the file encoding.
	Format LargeObjectFormat `msgpack:"format" json:"format"`
}

// Validate checks the reference is usable for rehydration.
func (r *LargeObjectRef) Validate() error {
	if r.Kind != KindLargeObject {
		return errors.New("not a large object reference")
	}
	if r.TempPath == "" {
		return errors.New("large object reference has no temp_path")
	}
	if r.Format != "" && r.Format != LargeObjectFormatMsgpackLZ4 {
		return errors.New("unsupported large object format: " + string(r.Format))
	}
	return nil
}
