package largeobj

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

func compress(b []byte, opts ...lz4.Option) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(opts...); err != nil {
		w.Close()
		return nil, fmt.Errorf("bad compression options: %w", err)
	} else if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, fmt.Errorf("compression failed: %w", err)
	} else if err = w.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

func uncompress(b []byte, opts ...lz4.Option) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(b))
	if err := r.Apply(opts...); err != nil {
		return nil, fmt.Errorf("bad compression options: %w", err)
	}
	return io.ReadAll(r)
}
