// Package shm provides the transient artifact store shared by the caller and
// the runner program. Artifacts are single-use files under one RAM-backed
// root, named with collision-resistant tokens so concurrent calls never
// coordinate.
package shm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/noob000007/remote-conda-decorator/iox"
)

// shmDir is the RAM-backed filesystem on Linux.
const shmDir = "/dev/shm"

// memoryRoot is the synthetic root reported by memory-backed stores.
const memoryRoot = "/memory"

// DefaultRoot returns the per-user store directory under /dev/shm, or under
// os.TempDir() when /dev/shm is absent.
func DefaultRoot() string {
	base := os.TempDir()
	if fi, err := os.Stat(shmDir); err == nil && fi.IsDir() {
		base = shmDir
	}
	return filepath.Join(base, "condacall-"+strconv.Itoa(os.Getuid()))
}

// Store is the transient artifact store.
// Keys are slash-separated names relative to the root.
// Store is safe for concurrent use; it holds no per-artifact state.
type Store struct {
	root    string
	backend lode.Store
	onDisk  bool
}

// Open returns a filesystem store rooted at root, creating the directory.
// An empty root selects DefaultRoot().
func Open(root string) (*Store, error) {
	if root == "" {
		root = DefaultRoot()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, wrapError(err, "init", root)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, wrapError(err, "init", abs)
	}
	s, err := OpenWithFactory(abs, lode.NewFSFactory(abs))
	if err != nil {
		return nil, err
	}
	s.onDisk = true
	return s, nil
}

// OpenWithFactory returns a store over the backend produced by factory.
// root is only used to map keys to paths.
func OpenWithFactory(root string, factory lode.StoreFactory) (*Store, error) {
	backend, err := factory()
	if err != nil {
		return nil, wrapError(fmt.Errorf("store factory: %w", err), "init", root)
	}
	return &Store{root: filepath.Clean(root), backend: backend}, nil
}

// NewMemory returns an in-memory store. Paths it reports live under a
// synthetic root and do not exist on disk.
func NewMemory() *Store {
	return &Store{root: memoryRoot, backend: lode.NewMemory()}
}

// Root returns the absolute store root.
func (s *Store) Root() string {
	return s.root
}

// OnDisk reports whether paths returned by Path exist on the filesystem.
func (s *Store) OnDisk() bool {
	return s.onDisk
}

// Path returns the absolute path of key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Key maps an absolute path under the root back to its key.
func (s *Store) Key(path string) (string, error) {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", NewStorageError(ErrInvalidKey, "key", path, fmt.Errorf("not under %s", s.root))
	}
	return filepath.ToSlash(rel), nil
}

func (s *Store) checkKey(op, key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return NewStorageError(ErrInvalidKey, op, key, fmt.Errorf("key must be a relative name"))
	}
	return nil
}

// Put writes data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.checkKey("put", key); err != nil {
		return err
	}
	return wrapError(s.backend.Put(ctx, key, bytes.NewReader(data)), "put", key)
}

// Get reads the whole artifact under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkKey("get", key); err != nil {
		return nil, err
	}
	rc, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, wrapError(err, "get", key)
	}
	defer iox.DiscardClose(rc)

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapError(err, "get", key)
	}
	return data, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.checkKey("exists", key); err != nil {
		return false, err
	}
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		return false, wrapError(err, "exists", key)
	}
	return ok, nil
}

// Remove deletes key. Removing an absent artifact is not an error, so
// every owner may call it unconditionally.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.checkKey("remove", key); err != nil {
		return err
	}
	err := wrapError(s.backend.Delete(ctx, key), "remove", key)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// RemoveTree deletes every artifact under the directory key and, for
// filesystem stores, the directory itself. Idempotent.
func (s *Store) RemoveTree(ctx context.Context, dir string) error {
	if err := s.checkKey("remove", dir); err != nil {
		return err
	}
	keys, err := s.List(ctx, dir+"/")
	if err != nil {
		return err
	}
	var firstErr error
	for _, key := range keys {
		if err := s.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.onDisk {
		if err := os.RemoveAll(s.Path(dir)); err != nil && firstErr == nil {
			firstErr = wrapError(err, "remove", dir)
		}
	}
	return firstErr
}

// List returns the keys starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.backend.List(ctx, "")
	if err != nil {
		if IsNotFound(wrapError(err, "list", prefix)) {
			return nil, nil
		}
		return nil, wrapError(err, "list", prefix)
	}
	out := keys[:0]
	for _, key := range keys {
		key = strings.TrimPrefix(filepath.ToSlash(key), "/")
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

// SweepResult reports what a sweep found.
type SweepResult struct {
	// Removed lists stale keys removed, or that would be in a dry run.
	Removed []string
	// Failed lists stale keys that could not be removed.
	Failed []string
}

// Sweep removes artifacts whose token is older than olderThan.
// It recovers the store from callers killed mid-call. Keys without a
// recognizable artifact prefix or a timestamped token are never touched.
func (s *Store) Sweep(ctx context.Context, olderThan time.Duration, dryRun bool) (SweepResult, error) {
	var res SweepResult
	keys, err := s.List(ctx, "")
	if err != nil {
		return res, err
	}

	cutoff := time.Now().Add(-olderThan)
	runnerDirs := make(map[string]struct{})
	for _, key := range keys {
		token, ok := TokenOf(key)
		if !ok {
			continue
		}
		created, ok := TokenTime(token)
		if !ok || created.After(cutoff) {
			continue
		}
		if dir, _, nested := strings.Cut(key, "/"); nested {
			runnerDirs[dir] = struct{}{}
		}
		if !dryRun {
			if err := s.Remove(ctx, key); err != nil {
				res.Failed = append(res.Failed, key)
				continue
			}
		}
		res.Removed = append(res.Removed, key)
	}

	if !dryRun && s.onDisk {
		for dir := range runnerDirs {
			_ = os.RemoveAll(s.Path(dir))
		}
	}
	return res, nil
}
