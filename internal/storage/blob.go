// Package storage keeps downloaded media bytes behind local blob references
// so that remote URLs are never handed to the presentation layer.
package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"xstream/internal/domain"
)

// RefPrefix marks a locally materialised blob reference.
const RefPrefix = "blob:"

// BlobStore materialises media bytes under a local reference.
type BlobStore interface {
	Put(ctx context.Context, data []byte, mime string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, string, error)
}

// MemoryStore keeps blobs for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data []byte
	mime string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string]memoryBlob{}}
}

func (m *MemoryStore) Put(ctx context.Context, data []byte, mime string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := newRef()
	copied := append([]byte(nil), data...)
	m.mu.Lock()
	m.blobs[ref] = memoryBlob{data: copied, mime: mime}
	m.mu.Unlock()
	return ref, nil
}

func (m *MemoryStore) Get(ctx context.Context, ref string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	m.mu.RLock()
	blob, ok := m.blobs[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return blob.data, blob.mime, nil
}

// NormalizeRef accepts either a full reference or a bare ID.
func NormalizeRef(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, RefPrefix) {
		return id
	}
	return RefPrefix + id
}

func newRef() string {
	return RefPrefix + uuid.NewString()
}

func refID(ref string) string {
	return strings.TrimPrefix(ref, RefPrefix)
}

var _ BlobStore = (*MemoryStore)(nil)
