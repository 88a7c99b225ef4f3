package shm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	key := NewKey(InputPrefix, ArtifactExt)

	if err := s.Put(ctx, key, []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err := s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}
	data, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Get = %q, want %q", data, "payload")
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove(ctx, key); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
	ok, err = s.Exists(ctx, key)
	if err != nil || ok {
		t.Errorf("Exists after Remove = %v, %v; want false", ok, err)
	}
}

func TestStore_GetMissing(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), "result_missing.msgpack")
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "get" {
		t.Errorf("expected get StorageError, got %v", err)
	}
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	s := NewMemory()
	for _, key := range []string{"", "/etc/passwd", "../outside"} {
		if err := s.Put(context.Background(), key, nil); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestStore_PathKeyRoundTrip(t *testing.T) {
	s := NewMemory()
	key := NewKey(ResultPrefix, ArtifactExt)
	path := s.Path(key)
	if !filepath.IsAbs(path) {
		t.Errorf("Path(%q) = %q, want absolute", key, path)
	}
	got, err := s.Key(path)
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if got != key {
		t.Errorf("Key(Path(k)) = %q, want %q", got, key)
	}

	if _, err := s.Key("/elsewhere/result.msgpack"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Key outside root = %v, want ErrInvalidKey", err)
	}
}

func TestOpen_Filesystem(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !s.OnDisk() {
		t.Error("filesystem store should report OnDisk")
	}

	key := NewKey(InputPrefix, ArtifactExt)
	if err := s.Put(ctx, key, []byte("abc")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	onDisk, err := os.ReadFile(filepath.Join(root, key))
	if err != nil {
		t.Fatalf("artifact not on disk: %v", err)
	}
	if string(onDisk) != "abc" {
		t.Errorf("file content = %q, want %q", onDisk, "abc")
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, key)); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err = %v", err)
	}
}

func TestOpenWithFactory_Error(t *testing.T) {
	factory := func() (lode.Store, error) { return nil, errors.New("boom") }
	if _, err := OpenWithFactory("/x", factory); err == nil {
		t.Fatal("expected factory error")
	}
}

func TestStore_ListAndRemoveTree(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	dir := NewKey(RunnerPrefix, "")
	for _, name := range []string{"main.go", "go.mod"} {
		if err := s.Put(ctx, dir+"/"+name, []byte(name)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	other := NewKey(InputPrefix, ArtifactExt)
	if err := s.Put(ctx, other, []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	keys, err := s.List(ctx, dir+"/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || !strings.HasSuffix(keys[0], "go.mod") {
		t.Errorf("List = %v, want the two runner files", keys)
	}

	if err := s.RemoveTree(ctx, dir); err != nil {
		t.Fatalf("RemoveTree failed: %v", err)
	}
	keys, _ = s.List(ctx, "")
	if len(keys) != 1 || keys[0] != other {
		t.Errorf("after RemoveTree List = %v, want [%s]", keys, other)
	}
}

func TestStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	old := tokenAt(time.Now().Add(-2 * time.Hour))
	oldInput, oldResult := CallKeys(old)
	oldRunner := RunnerPrefix + old + "/main.go"
	fresh, _ := CallKeys(NewToken())
	foreign := "notes.txt"

	for _, key := range []string{oldInput, oldResult, oldRunner, fresh, foreign} {
		if err := s.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Put(%q) failed: %v", key, err)
		}
	}

	res, err := s.Sweep(ctx, time.Hour, true)
	if err != nil {
		t.Fatalf("dry-run Sweep failed: %v", err)
	}
	if len(res.Removed) != 3 {
		t.Errorf("dry run found %v, want 3 stale keys", res.Removed)
	}
	if ok, _ := s.Exists(ctx, oldInput); !ok {
		t.Error("dry run must not remove anything")
	}

	res, err = s.Sweep(ctx, time.Hour, false)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(res.Removed) != 3 || len(res.Failed) != 0 {
		t.Errorf("Sweep = %+v, want 3 removed", res)
	}
	for _, key := range []string{fresh, foreign} {
		if ok, _ := s.Exists(ctx, key); !ok {
			t.Errorf("Sweep removed %q", key)
		}
	}
	for _, key := range []string{oldInput, oldResult, oldRunner} {
		if ok, _ := s.Exists(ctx, key); ok {
			t.Errorf("Sweep left %q", key)
		}
	}
}

func TestDefaultRoot(t *testing.T) {
	root := DefaultRoot()
	if !filepath.IsAbs(root) {
		t.Errorf("DefaultRoot() = %q, want absolute", root)
	}
	if !strings.HasPrefix(filepath.Base(root), "condacall-") {
		t.Errorf("DefaultRoot() = %q, want per-user directory", root)
	}
}
