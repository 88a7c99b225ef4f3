package largeobj

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/noob000007/remote-conda-decorator/ipc"
	"github.com/noob000007/remote-conda-decorator/shm"
	"github.com/noob000007/remote-conda-decorator/types"
)

// ParseReference reports whether raw is an encoded large-object reference.
// Detection is by the kind discriminant only.
func ParseReference(raw []byte) (*types.LargeObjectRef, bool) {
	kind, err := ipc.ProbeKind(raw)
	if err != nil || kind != types.KindLargeObject {
		return nil, false
	}
	var ref types.LargeObjectRef
	if err := msgpack.Unmarshal(raw, &ref); err != nil {
		return nil, false
	}
	if ref.Validate() != nil {
		return nil, false
	}
	return &ref, true
}

// Write stores an encoded value as a new large-object file.
func Write(ctx context.Context, store *shm.Store, raw []byte, mode string) (*types.LargeObjectRef, error) {
	if mode == "" {
		mode = types.DefaultLargeObjectMode
	}
	data, err := compress(raw)
	if err != nil {
		return nil, err
	}
	key := shm.NewKey(shm.LargeObjectPrefix, shm.LargeObjectExt)
	if err := store.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("externalize large object: %w", err)
	}
	return &types.LargeObjectRef{
		Kind:     types.KindLargeObject,
		TempPath: store.Path(key),
		Mode:     mode,
		Format:   types.LargeObjectFormatMsgpackLZ4,
	}, nil
}

// Load returns the encoded value held by the file ref names.
func Load(ctx context.Context, store *shm.Store, ref *types.LargeObjectRef) ([]byte, error) {
	key, err := store.Key(ref.TempPath)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load large object: %w", err)
	}
	raw, err := uncompress(data)
	if err != nil {
		return nil, fmt.Errorf("load large object %s: %w", ref.TempPath, err)
	}
	return raw, nil
}

// Remove deletes the file ref names. Idempotent.
func Remove(ctx context.Context, store *shm.Store, ref *types.LargeObjectRef) error {
	key, err := store.Key(ref.TempPath)
	if err != nil {
		return err
	}
	return store.Remove(ctx, key)
}
