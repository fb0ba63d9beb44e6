package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	id "verdeck/pkg/domain"
	"verdeck/pkg/platform/sentinel"
)

// BlobStore is the opaque document store contract. Implementations persist
// raw bytes and hand back a reference; the engine keeps the metadata.
type BlobStore interface {
	Store(ctx context.Context, entityID id.EntityID, docType Type, content []byte) (ref string, err error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FilesystemBlobStore writes documents under root/<entity>/<hash>. Content
// addressing makes re-uploads of identical bytes idempotent on disk.
type FilesystemBlobStore struct {
	root string
}

func NewFilesystemBlobStore(root string) (*FilesystemBlobStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FilesystemBlobStore{root: root}, nil
}

func (s *FilesystemBlobStore) Store(_ context.Context, entityID id.EntityID, docType Type, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	ref := filepath.Join(entityID.String(), string(docType)+"-"+hex.EncodeToString(sum[:8]))
	path := filepath.Join(s.root, ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("%w: create entity dir: %v", sentinel.ErrUnavailable, err)
	}
	if err := os.WriteFile(path, content, 0o640); err != nil {
		return "", fmt.Errorf("%w: write blob: %v", sentinel.ErrUnavailable, err)
	}
	return ref, nil
}

func (s *FilesystemBlobStore) Fetch(_ context.Context, ref string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.root, ref))
	if os.IsNotExist(err) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read blob: %v", sentinel.ErrUnavailable, err)
	}
	return content, nil
}

// InMemoryBlobStore backs tests and development runs.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryBlobStore) Store(_ context.Context, entityID id.EntityID, docType Type, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	ref := entityID.String() + "/" + string(docType) + "-" + hex.EncodeToString(sum[:8])
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = append([]byte{}, content...)
	return ref, nil
}

func (s *InMemoryBlobStore) Fetch(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte{}, content...), nil
}
